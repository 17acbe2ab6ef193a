package grid

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/backoffice/pkg/types"
)

// Action is a per-row action kind.
type Action string

// Row actions.
const (
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionCopy   Action = "copy"
)

// ParseAction returns the Action named s.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionEdit, ActionDelete, ActionCopy:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedAction, s)
}

// ActionResult reports the outcome of DispatchRowAction.
type ActionResult struct {
	Action Action
	// Row is the target row. For edit it is the current stored version.
	Row types.Row
	// Copied is the text written to the clipboard by copy.
	Copied   string
	Snapshot Snapshot
}

// DispatchRowAction runs action against row.
//
// Delete calls the store and removes the row only after the store confirms.
// A store ErrNotFound counts as confirmation. Any other failure leaves the
// row in place and returns a *types.PersistenceError.
//
// Copy writes the copy field of the row to the clipboard. Edit returns the
// current version of the row, or types.ErrNotFound when it is gone.
func (v *View) DispatchRowAction(ctx context.Context, action Action, row types.Row) (ActionResult, error) {
	res := ActionResult{Action: action, Row: row}
	switch action {
	case ActionDelete:
		snap, err := v.deleteRow(ctx, row.ID)
		res.Snapshot = snap
		return res, err
	case ActionCopy:
		text, err := v.copyRow(row)
		res.Copied = text
		res.Snapshot = v.Snapshot()
		return res, err
	case ActionEdit:
		cur, ok := v.Row(row.ID)
		res.Snapshot = v.Snapshot()
		if !ok {
			return res, fmt.Errorf("edit %s: %w", row.ID, types.ErrNotFound)
		}
		res.Row = cur
		return res, nil
	}
	return res, fmt.Errorf("%w: %q", ErrUnsupportedAction, action)
}

func (v *View) deleteRow(ctx context.Context, id string) (Snapshot, error) {
	if v.opts.Store == nil {
		return v.Snapshot(), fmt.Errorf("delete %s: %w", id, types.ErrUnsupported)
	}
	if err := v.opts.Store.Delete(ctx, id); err != nil {
		if !types.IsNotFound(err) {
			v.opts.Logger.Warnf("delete %s/%s failed: %v", v.opts.Collection, id, err)
			return v.Snapshot(), &types.PersistenceError{Op: "delete", Collection: v.opts.Collection, ID: id, Err: err}
		}
		v.opts.Logger.Debugf("delete %s/%s: already gone", v.opts.Collection, id)
	}
	snap, _ := v.Remove(id)
	return snap, nil
}

func (v *View) copyRow(row types.Row) (string, error) {
	if v.opts.CopyField == "" {
		return "", fmt.Errorf("%w: no copy field for %s", ErrUnsupportedAction, v.opts.Collection)
	}
	if cur, ok := v.Row(row.ID); ok {
		row = cur
	}
	text := types.FormatValue(v.fieldValue(row, v.opts.CopyField))
	if v.opts.Clipboard == nil {
		return text, fmt.Errorf("%w: no clipboard", ErrClipboard)
	}
	if err := v.opts.Clipboard.WriteAll(text); err != nil {
		return text, fmt.Errorf("%w: %w", ErrClipboard, err)
	}
	return text, nil
}

// DeleteSelected deletes every selected row. Stores implementing
// types.BulkDeleter are called once; others are called per row, stopping at
// the first failure. Rows are removed only once their delete is confirmed.
func (v *View) DeleteSelected(ctx context.Context) (Snapshot, error) {
	selected := v.SelectedRows()
	if len(selected) == 0 {
		return v.Snapshot(), nil
	}
	if v.opts.Store == nil {
		return v.Snapshot(), fmt.Errorf("delete selected: %w", types.ErrUnsupported)
	}
	ids := make([]string, len(selected))
	for i, r := range selected {
		ids[i] = r.ID
	}

	if bulk, ok := v.opts.Store.(types.BulkDeleter); ok {
		if err := bulk.DeleteMany(ctx, ids); err != nil {
			return v.Snapshot(), &types.PersistenceError{Op: "delete", Collection: v.opts.Collection, Err: err}
		}
		return v.removeAll(ids), nil
	}

	var done []string
	for _, id := range ids {
		if err := v.opts.Store.Delete(ctx, id); err != nil && !types.IsNotFound(err) {
			return v.removeAll(done), &types.PersistenceError{Op: "delete", Collection: v.opts.Collection, ID: id, Err: err}
		}
		done = append(done, id)
	}
	return v.removeAll(done), nil
}

func (v *View) removeAll(ids []string) Snapshot {
	return v.update(func() bool {
		changed := false
		for _, id := range ids {
			if v.removeLocked(id) {
				changed = true
			}
		}
		return changed
	})
}

// Create validates fields, inserts them and appends the stored row.
func (v *View) Create(ctx context.Context, fields map[string]any) (types.Row, Snapshot, error) {
	if err := v.validate(fields); err != nil {
		return types.Row{}, v.Snapshot(), err
	}
	if v.opts.Store == nil {
		return types.Row{}, v.Snapshot(), fmt.Errorf("create: %w", types.ErrUnsupported)
	}
	row, err := v.opts.Store.Insert(ctx, fields)
	if err != nil {
		return types.Row{}, v.Snapshot(), &types.PersistenceError{Op: "insert", Collection: v.opts.Collection, Err: err}
	}
	return row, v.Append(row), nil
}

// Update validates fields, updates the stored row and patches it in place.
// An id the store no longer knows is returned as types.ErrNotFound and the
// view is left unchanged.
func (v *View) Update(ctx context.Context, id string, fields map[string]any) (types.Row, Snapshot, error) {
	if err := v.validate(fields); err != nil {
		return types.Row{}, v.Snapshot(), err
	}
	if v.opts.Store == nil {
		return types.Row{}, v.Snapshot(), fmt.Errorf("update: %w", types.ErrUnsupported)
	}
	row, err := v.opts.Store.Update(ctx, id, fields)
	if err != nil {
		return types.Row{}, v.Snapshot(), &types.PersistenceError{Op: "update", Collection: v.opts.Collection, ID: id, Err: err}
	}
	snap, _ := v.Replace(row)
	return row, snap, nil
}

func (v *View) validate(fields map[string]any) error {
	if v.opts.Validate == nil {
		return nil
	}
	return v.opts.Validate(fields)
}

// Reload lists the collection from the store and replaces the rows. On
// failure the view is left unchanged.
func (v *View) Reload(ctx context.Context) (Snapshot, error) {
	if v.opts.Store == nil {
		return v.Snapshot(), fmt.Errorf("reload: %w", types.ErrUnsupported)
	}
	rows, err := v.opts.Store.List(ctx, v.opts.Order)
	if err != nil {
		return v.Snapshot(), &types.PersistenceError{Op: "list", Collection: v.opts.Collection, Err: err}
	}
	return v.SetRows(rows), nil
}

// PersistOrder saves the stored order through types.Positioner.
func (v *View) PersistOrder(ctx context.Context) error {
	pos, ok := v.opts.Store.(types.Positioner)
	if !ok {
		return fmt.Errorf("persist order: %w", types.ErrUnsupported)
	}
	rows := v.Rows()
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	if err := pos.SetPositions(ctx, ids); err != nil {
		return &types.PersistenceError{Op: "reorder", Collection: v.opts.Collection, Err: err}
	}
	return nil
}
