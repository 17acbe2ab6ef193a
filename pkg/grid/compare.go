package grid

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/mesh-intelligence/backoffice/pkg/types"
)

// fieldValue resolves field against the declared columns first so that
// accessors apply to search and type filtering as well as sorting.
func (v *View) fieldValue(r types.Row, field string) any {
	if c, ok := v.columns[field]; ok {
		return c.Value(r)
	}
	return r.Get(field)
}

func (v *View) matchesSearch(r types.Row, needle string) bool {
	if needle == "" {
		return true
	}
	for _, f := range v.searchFields {
		text := v.fold.String(types.FormatValue(v.fieldValue(r, f)))
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

func (v *View) matchesType(r types.Row) bool {
	if len(v.typeFilter) == 0 || v.opts.TypeField == "" {
		return true
	}
	_, ok := v.typeFilter[types.FormatValue(v.fieldValue(r, v.opts.TypeField))]
	return ok
}

type keyed struct {
	row types.Row
	key any
}

// sortRows orders rows by col with a stable sort. Descending order compares
// with the operands swapped, so equal keys keep their stored relative order
// in both directions.
func (v *View) sortRows(rows []types.Row, col Column, desc bool) {
	ks := make([]keyed, len(rows))
	for i, r := range rows {
		ks[i] = keyed{row: r, key: col.Value(r)}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		c := v.compare(ks[i].key, ks[j].key)
		if desc {
			return c > 0
		}
		return c < 0
	})
	for i := range ks {
		rows[i] = ks[i].row
	}
}

// compare orders nil first, then numbers, times and booleans by value, and
// everything else as collated text.
func (v *View) compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return cmpFloat(fa, fb)
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			default:
				return 1
			}
		}
	}
	return v.coll.CompareString(types.FormatValue(a), types.FormatValue(b))
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func toFloat(x any) (float64, bool) {
	switch n := x.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
