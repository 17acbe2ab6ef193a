package store

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/backoffice/pkg/types"
)

// column is one user-visible field of a collection table.
type column struct {
	name    string
	integer bool
}

// table describes a collection table: its fields and the order used when
// List is called without one.
type table struct {
	name         string
	columns      []column
	defaultOrder types.Order
}

// System columns present on every table.
const (
	colID        = "id"
	colSortOrder = "sort_order"
	colCreatedAt = "created_at"
	colUpdatedAt = "updated_at"
)

var personnelColumns = []column{
	{name: "name"},
	{name: "number"},
	{name: "position"},
	{name: "arrangement"},
	{name: "status"},
	{name: "start_date"},
}

// tables lists the schema of every record collection.
var tables = map[string]table{
	types.EmployeesCollection: {
		name:         types.EmployeesCollection,
		columns:      personnelColumns,
		defaultOrder: types.Order{Field: "start_date", Descending: true},
	},
	types.StudentsCollection: {
		name:         types.StudentsCollection,
		columns:      personnelColumns,
		defaultOrder: types.Order{Field: "start_date", Descending: true},
	},
	types.InventoryCollection: {
		name: types.InventoryCollection,
		columns: []column{
			{name: "item_name"},
			{name: "model_num"},
			{name: "operator"},
			{name: "date"},
			{name: "quantity", integer: true},
			{name: "status"},
			{name: "details"},
		},
		defaultOrder: types.Order{Field: colCreatedAt, Descending: true},
	},
	types.StakeholdersCollection: {
		name: types.StakeholdersCollection,
		columns: []column{
			{name: "name"},
			{name: "category"},
			{name: "contact"},
			{name: "email"},
			{name: "notes"},
		},
		defaultOrder: types.Order{Field: "name"},
	},
}

// createDDL returns the CREATE TABLE statement for t. The statement is valid
// for both SQLite and PostgreSQL.
func (t table) createDDL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n    %s TEXT PRIMARY KEY", t.name, colID)
	for _, c := range t.columns {
		if c.integer {
			fmt.Fprintf(&b, ",\n    %s BIGINT NOT NULL DEFAULT 0", c.name)
		} else {
			fmt.Fprintf(&b, ",\n    %s TEXT NOT NULL DEFAULT ''", c.name)
		}
	}
	fmt.Fprintf(&b, ",\n    %s BIGINT NOT NULL DEFAULT 0", colSortOrder)
	fmt.Fprintf(&b, ",\n    %s TEXT NOT NULL", colCreatedAt)
	fmt.Fprintf(&b, ",\n    %s TEXT NOT NULL\n)", colUpdatedAt)
	return b.String()
}

// indexDDL returns the index statements for t.
func (t table) indexDDL() []string {
	return []string{
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_sort_order ON %s(%s)", t.name, t.name, colSortOrder),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s(%s)", t.name, t.name, colCreatedAt),
	}
}

// selectList returns the column list used by queries.
func (t table) selectList() string {
	names := []string{colID}
	for _, c := range t.columns {
		names = append(names, c.name)
	}
	names = append(names, colCreatedAt, colUpdatedAt)
	return strings.Join(names, ", ")
}

func (t table) column(name string) (column, bool) {
	for _, c := range t.columns {
		if c.name == name {
			return c, true
		}
	}
	return column{}, false
}

// orderable reports whether name may appear in ORDER BY.
func (t table) orderable(name string) bool {
	if name == colID || name == colCreatedAt || name == colUpdatedAt || name == colSortOrder {
		return true
	}
	_, ok := t.column(name)
	return ok
}
