// Package grid implements the tabular data view engine: search, type
// filtering, stable sorting, pagination, manual reordering, row selection
// and row action dispatch over an in-memory row set.
//
// A View owns the stored row order. Filtering and sorting only change the
// rendered order; Reorder is the only call that changes the stored order.
// Every mutating call returns a Snapshot and notifies subscribers.
package grid

import (
	"sort"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mesh-intelligence/backoffice/pkg/types"
)

// DefaultPageSize is used when Options.PageSize is not positive.
const DefaultPageSize = 10

// Clipboard receives text copied by the copy row action.
type Clipboard interface {
	WriteAll(text string) error
}

// Options configures a View.
type Options struct {
	// Collection names the rows for error messages.
	Collection string

	Columns []Column

	// SearchFields are matched by SetSearchText. When empty the Searchable
	// columns are used, and when none are marked, every column.
	SearchFields []string

	// TypeField is the categorical field restricted by SetTypeFilter.
	TypeField string

	// CopyField is written to the clipboard by the copy action.
	CopyField string

	PageSize int

	// Order is passed to RecordStore.List by Reload.
	Order *types.Order

	Store     types.RecordStore
	Clipboard Clipboard

	// Validate checks fields before Create and Update reach the store.
	Validate func(fields map[string]any) error

	Logger types.Logger
}

// View is a derived, interactive view over a row collection. It is safe for
// concurrent use; collaborator calls run outside the lock and their results
// are applied to the state current at completion time.
type View struct {
	mu   sync.Mutex
	opts Options

	columns      map[string]Column
	searchFields []string

	rows     []types.Row
	index    map[string]int
	selected map[string]struct{}

	search     string
	typeFilter map[string]struct{}
	sort       *SortKey
	page       int
	pageSize   int

	visible []types.Row

	fold cases.Caser
	coll *collate.Collator

	subs    map[int]func(Snapshot)
	nextSub int
	closed  bool
}

// New returns an empty View.
func New(opts Options) *View {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Logger == nil {
		opts.Logger = types.NopLogger{}
	}
	v := &View{
		opts:       opts,
		columns:    make(map[string]Column, len(opts.Columns)),
		index:      make(map[string]int),
		selected:   make(map[string]struct{}),
		typeFilter: make(map[string]struct{}),
		pageSize:   opts.PageSize,
		fold:       cases.Fold(),
		coll:       collate.New(language.English, collate.IgnoreCase, collate.Numeric),
		subs:       make(map[int]func(Snapshot)),
	}
	for _, c := range opts.Columns {
		v.columns[c.Name] = c
	}
	v.searchFields = searchFields(opts)
	return v
}

func searchFields(opts Options) []string {
	if len(opts.SearchFields) > 0 {
		return append([]string(nil), opts.SearchFields...)
	}
	var marked, all []string
	for _, c := range opts.Columns {
		all = append(all, c.Name)
		if c.Searchable {
			marked = append(marked, c.Name)
		}
	}
	if len(marked) > 0 {
		return marked
	}
	return all
}

// Columns returns the declared columns in order.
func (v *View) Columns() []Column {
	return append([]Column(nil), v.opts.Columns...)
}

// Collection returns the configured collection name.
func (v *View) Collection() string {
	return v.opts.Collection
}

// Subscribe registers fn to receive every snapshot produced by a mutating
// call. The returned function cancels the subscription.
func (v *View) Subscribe(fn func(Snapshot)) (cancel func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return func() {}
	}
	id := v.nextSub
	v.nextSub++
	v.subs[id] = fn
	return func() {
		v.mu.Lock()
		delete(v.subs, id)
		v.mu.Unlock()
	}
}

// Close tears the view down. Later calls are ignored and pending
// collaborator completions are dropped.
func (v *View) Close() {
	v.mu.Lock()
	v.closed = true
	v.subs = make(map[int]func(Snapshot))
	v.mu.Unlock()
}

// Snapshot returns the current snapshot without changing state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Rows returns every row in stored order.
func (v *View) Rows() []types.Row {
	v.mu.Lock()
	defer v.mu.Unlock()
	return cloneRows(v.rows)
}

// Visible returns every filtered row in rendered order, across all pages.
func (v *View) Visible() []types.Row {
	v.mu.Lock()
	defer v.mu.Unlock()
	return cloneRows(v.visible)
}

// Row returns the current version of the row with id.
func (v *View) Row(id string) (types.Row, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	i, ok := v.index[id]
	if !ok {
		return types.Row{}, false
	}
	return v.rows[i].Clone(), true
}

// update runs fn under the lock, recomputes the visible rows and notifies
// subscribers when fn reports a change. Calls on a closed view are dropped.
func (v *View) update(fn func() bool) Snapshot {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return Snapshot{}
	}
	if !fn() {
		snap := v.snapshotLocked()
		v.mu.Unlock()
		return snap
	}
	v.refreshLocked()
	snap := v.snapshotLocked()
	ids := make([]int, 0, len(v.subs))
	for id := range v.subs {
		ids = append(ids, id)
	}
	v.mu.Unlock()

	sort.Ints(ids)
	for _, id := range ids {
		if sub, ok := v.subscriber(id); ok {
			sub(snap)
		}
	}
	return snap
}

// subscriber returns the callback registered under id while the view is
// open. A subscriber may close the view or cancel others mid-dispatch.
func (v *View) subscriber(id int) (func(Snapshot), bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil, false
	}
	sub, ok := v.subs[id]
	return sub, ok
}

// SetRows replaces the collection. Search, type filter and sort are kept;
// the page resets to the first and the selection is pruned to ids that are
// still present. Duplicate ids keep their first occurrence.
func (v *View) SetRows(rows []types.Row) Snapshot {
	return v.update(func() bool {
		v.rows = v.rows[:0:0]
		seen := make(map[string]struct{}, len(rows))
		for _, r := range rows {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			v.rows = append(v.rows, r.Clone())
		}
		v.reindexLocked()
		v.page = 0
		return true
	})
}

// Append adds a row at the end of the stored order. A row whose id is
// already present replaces that row in place.
func (v *View) Append(row types.Row) Snapshot {
	return v.update(func() bool {
		if i, ok := v.index[row.ID]; ok {
			v.rows[i] = row.Clone()
			return true
		}
		v.rows = append(v.rows, row.Clone())
		v.index[row.ID] = len(v.rows) - 1
		return true
	})
}

// Replace swaps the stored row with the same id, keeping its position.
// It reports false when no such row exists.
func (v *View) Replace(row types.Row) (Snapshot, bool) {
	var replaced bool
	snap := v.update(func() bool {
		i, ok := v.index[row.ID]
		if !ok {
			return false
		}
		v.rows[i] = row.Clone()
		replaced = true
		return true
	})
	return snap, replaced
}

// Remove deletes the row with id from the collection and the selection.
// Removing an absent id is a no-op.
func (v *View) Remove(id string) (Snapshot, bool) {
	var removed bool
	snap := v.update(func() bool {
		removed = v.removeLocked(id)
		return removed
	})
	return snap, removed
}

func (v *View) removeLocked(id string) bool {
	i, ok := v.index[id]
	if !ok {
		return false
	}
	v.rows = append(v.rows[:i], v.rows[i+1:]...)
	delete(v.selected, id)
	v.reindexLocked()
	return true
}

// SetSearchText sets the free-text filter and returns to the first page.
func (v *View) SetSearchText(text string) Snapshot {
	return v.update(func() bool {
		v.search = text
		v.page = 0
		return true
	})
}

// SetTypeFilter restricts rows to those whose type field is one of values.
// An empty set removes the restriction.
func (v *View) SetTypeFilter(values []string) Snapshot {
	return v.update(func() bool {
		v.typeFilter = make(map[string]struct{}, len(values))
		for _, val := range values {
			v.typeFilter[val] = struct{}{}
		}
		v.page = 0
		return true
	})
}

// ToggleType adds value to the type filter, or removes it when present.
func (v *View) ToggleType(value string) Snapshot {
	return v.update(func() bool {
		if _, ok := v.typeFilter[value]; ok {
			delete(v.typeFilter, value)
		} else {
			v.typeFilter[value] = struct{}{}
		}
		v.page = 0
		return true
	})
}

// TypeValues returns the distinct type field values in the collection,
// sorted.
func (v *View) TypeValues() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.opts.TypeField == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, r := range v.rows {
		val := types.FormatValue(v.fieldValue(r, v.opts.TypeField))
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	sort.Strings(out)
	return out
}

// SetSort sorts the rendered rows by column. The stored order is not
// changed. An unknown or unsortable column leaves the state as it was.
func (v *View) SetSort(column string, desc bool) (Snapshot, error) {
	v.mu.Lock()
	closed := v.closed
	c, ok := v.columns[column]
	v.mu.Unlock()
	if closed {
		return Snapshot{}, ErrViewClosed
	}
	if !ok || !c.Sortable {
		return v.Snapshot(), ErrUnknownColumn
	}
	return v.update(func() bool {
		v.sort = &SortKey{Column: column, Desc: desc}
		return true
	}), nil
}

// ClearSort returns the rendered rows to stored order.
func (v *View) ClearSort() Snapshot {
	return v.update(func() bool {
		if v.sort == nil {
			return false
		}
		v.sort = nil
		return true
	})
}

// NextPage moves one page forward. It does nothing on the last page.
func (v *View) NextPage() Snapshot {
	return v.update(func() bool {
		if v.page+1 >= v.pageCountLocked() {
			return false
		}
		v.page++
		return true
	})
}

// PreviousPage moves one page back. It does nothing on the first page.
func (v *View) PreviousPage() Snapshot {
	return v.update(func() bool {
		if v.page == 0 {
			return false
		}
		v.page--
		return true
	})
}

// GoToPage moves to page i, clamped to the valid range.
func (v *View) GoToPage(i int) Snapshot {
	return v.update(func() bool {
		v.page = i
		return true
	})
}

// SetPageSize changes the page size and returns to the first page.
func (v *View) SetPageSize(n int) (Snapshot, error) {
	if n <= 0 {
		return v.Snapshot(), ErrInvalidPageSize
	}
	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return Snapshot{}, ErrViewClosed
	}
	return v.update(func() bool {
		v.pageSize = n
		v.page = 0
		return true
	}), nil
}

// Reorder moves the row fromID to the position toID occupies. Moving down
// places it after toID, moving up places it before. It reports false, and
// changes nothing, when the ids are equal or either is absent.
func (v *View) Reorder(fromID, toID string) (Snapshot, bool) {
	var moved bool
	snap := v.update(func() bool {
		if fromID == toID {
			return false
		}
		from, ok := v.index[fromID]
		if !ok {
			return false
		}
		to, ok := v.index[toID]
		if !ok {
			return false
		}
		row := v.rows[from]
		v.rows = append(v.rows[:from], v.rows[from+1:]...)
		v.rows = append(v.rows[:to], append([]types.Row{row}, v.rows[to:]...)...)
		v.reindexLocked()
		moved = true
		return true
	})
	return snap, moved
}

// ToggleRowSelection selects or deselects id. Unknown ids are ignored.
func (v *View) ToggleRowSelection(id string) Snapshot {
	return v.update(func() bool {
		if _, ok := v.index[id]; !ok {
			return false
		}
		if _, ok := v.selected[id]; ok {
			delete(v.selected, id)
		} else {
			v.selected[id] = struct{}{}
		}
		return true
	})
}

// ToggleSelectAllOnPage deselects ids when all of them are selected and
// selects them all otherwise. A nil ids uses the current page.
func (v *View) ToggleSelectAllOnPage(ids []string) Snapshot {
	return v.update(func() bool {
		if ids == nil {
			for _, r := range v.pageRowsLocked() {
				ids = append(ids, r.ID)
			}
		}
		present := ids[:0:0]
		for _, id := range ids {
			if _, ok := v.index[id]; ok {
				present = append(present, id)
			}
		}
		if len(present) == 0 {
			return false
		}
		all := true
		for _, id := range present {
			if _, ok := v.selected[id]; !ok {
				all = false
				break
			}
		}
		for _, id := range present {
			if all {
				delete(v.selected, id)
			} else {
				v.selected[id] = struct{}{}
			}
		}
		return true
	})
}

// ClearSelection deselects every row.
func (v *View) ClearSelection() Snapshot {
	return v.update(func() bool {
		if len(v.selected) == 0 {
			return false
		}
		v.selected = make(map[string]struct{})
		return true
	})
}

// SelectedRows returns the selected rows in stored order.
func (v *View) SelectedRows() []types.Row {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []types.Row
	for _, r := range v.rows {
		if _, ok := v.selected[r.ID]; ok {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Reset restores search, type filter, sort, page, page size and selection
// to their defaults. Rows and stored order are kept.
func (v *View) Reset() Snapshot {
	return v.update(func() bool {
		v.search = ""
		v.typeFilter = make(map[string]struct{})
		v.sort = nil
		v.page = 0
		v.pageSize = v.opts.PageSize
		v.selected = make(map[string]struct{})
		return true
	})
}

func (v *View) reindexLocked() {
	v.index = make(map[string]int, len(v.rows))
	for i, r := range v.rows {
		v.index[r.ID] = i
	}
	for id := range v.selected {
		if _, ok := v.index[id]; !ok {
			delete(v.selected, id)
		}
	}
}

func (v *View) refreshLocked() {
	needle := v.fold.String(v.search)
	out := make([]types.Row, 0, len(v.rows))
	for _, r := range v.rows {
		if v.matchesType(r) && v.matchesSearch(r, needle) {
			out = append(out, r)
		}
	}
	if v.sort != nil {
		v.sortRows(out, v.columns[v.sort.Column], v.sort.Desc)
	}
	v.visible = out

	last := v.pageCountLocked() - 1
	if v.page > last {
		v.page = last
	}
	if v.page < 0 {
		v.page = 0
	}
}

func (v *View) pageCountLocked() int {
	return (len(v.visible) + v.pageSize - 1) / v.pageSize
}

func (v *View) pageRowsLocked() []types.Row {
	start := v.page * v.pageSize
	if start >= len(v.visible) {
		return nil
	}
	end := start + v.pageSize
	if end > len(v.visible) {
		end = len(v.visible)
	}
	return v.visible[start:end]
}

func (v *View) snapshotLocked() Snapshot {
	st := State{
		SearchText: v.search,
		PageIndex:  v.page,
		PageSize:   v.pageSize,
	}
	for val := range v.typeFilter {
		st.TypeFilter = append(st.TypeFilter, val)
	}
	sort.Strings(st.TypeFilter)
	if v.sort != nil {
		k := *v.sort
		st.Sort = &k
	}
	for _, r := range v.rows {
		if _, ok := v.selected[r.ID]; ok {
			st.Selected = append(st.Selected, r.ID)
		}
	}
	return Snapshot{
		Rows:      cloneRows(v.pageRowsLocked()),
		State:     st,
		Filtered:  len(v.visible),
		Total:     len(v.rows),
		PageCount: v.pageCountLocked(),
	}
}

func cloneRows(rows []types.Row) []types.Row {
	out := make([]types.Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}
