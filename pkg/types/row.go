package types

import (
	"fmt"
	"time"
)

// Row is one record in a tabular view. ID is stable and immutable for the
// lifetime of the row in a view; Fields holds scalar values keyed by field
// name and is opaque beyond the fields used by columns.
type Row struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// NewRow returns a Row with the given ID and a copy of fields.
func NewRow(id string, fields map[string]any) Row {
	r := Row{ID: id, Fields: make(map[string]any, len(fields))}
	for k, v := range fields {
		r.Fields[k] = v
	}
	return r
}

// Get returns the value stored under field, or nil when the field is absent.
// The pseudo-field "id" resolves to the row ID.
func (r Row) Get(field string) any {
	if field == FieldID {
		return r.ID
	}
	if r.Fields == nil {
		return nil
	}
	return r.Fields[field]
}

// String returns the display form of a field value. Nil values render as "".
func (r Row) String(field string) string {
	return FormatValue(r.Get(field))
}

// Clone returns a deep copy of the row's field map.
func (r Row) Clone() Row {
	return NewRow(r.ID, r.Fields)
}

// FieldID is the pseudo-field that addresses Row.ID.
const FieldID = "id"

// FormatValue renders a scalar field value as text. Times use RFC 3339.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// Order requests a server-side list ordering.
type Order struct {
	Field      string
	Descending bool
}
