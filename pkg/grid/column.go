package grid

import "github.com/mesh-intelligence/backoffice/pkg/types"

// Column describes one column of a view. Columns are declared once per
// collection and are not modified afterwards.
type Column struct {
	Name   string
	Header string

	// Accessor returns the comparable value of the column. When nil the
	// field named Name is used.
	Accessor func(types.Row) any

	// Render returns the display text. When nil the value is formatted with
	// types.FormatValue.
	Render func(types.Row) string

	Sortable   bool
	Searchable bool
}

// Value returns the column's comparable value for r.
func (c Column) Value(r types.Row) any {
	if c.Accessor != nil {
		return c.Accessor(r)
	}
	return r.Get(c.Name)
}

// Text returns the column's display text for r.
func (c Column) Text(r types.Row) string {
	if c.Render != nil {
		return c.Render(r)
	}
	return types.FormatValue(c.Value(r))
}

// Title returns the header, falling back to the column name.
func (c Column) Title() string {
	if c.Header != "" {
		return c.Header
	}
	return c.Name
}
