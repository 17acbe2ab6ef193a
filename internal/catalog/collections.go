package catalog

import (
	"github.com/mesh-intelligence/backoffice/pkg/grid"
	"github.com/mesh-intelligence/backoffice/pkg/types"
)

func personnelColumns() []grid.Column {
	return []grid.Column{
		{Name: "name", Header: "Name", Sortable: true, Searchable: true},
		{Name: "number", Header: "Number", Sortable: true, Searchable: true},
		{Name: "position", Header: "Position", Sortable: true, Searchable: true},
		{Name: "arrangement", Header: "Arrangement", Sortable: true},
		{Name: "status", Header: "Status", Sortable: true},
		{Name: "start_date", Header: "Start date", Sortable: true},
	}
}

func standardEntries() []Entry {
	return []Entry{
		{
			Name:      types.EmployeesCollection,
			Columns:   personnelColumns(),
			TypeField: "arrangement",
			CopyField: "number",
			newEntity: func() entity { return &types.Employee{} },
		},
		{
			Name:      types.StudentsCollection,
			Columns:   personnelColumns(),
			TypeField: "arrangement",
			CopyField: "number",
			newEntity: func() entity { return &types.Student{} },
		},
		{
			Name: types.InventoryCollection,
			Columns: []grid.Column{
				{Name: "item_name", Header: "Item", Sortable: true, Searchable: true},
				{Name: "model_num", Header: "Model", Sortable: true, Searchable: true},
				{Name: "operator", Header: "Operator", Sortable: true, Searchable: true},
				{Name: "date", Header: "Date", Sortable: true},
				{Name: "quantity", Header: "Qty", Sortable: true},
				{Name: "status", Header: "Status", Sortable: true},
				{Name: "details", Header: "Details", Searchable: true},
			},
			TypeField: "status",
			CopyField: "model_num",
			newEntity: func() entity { return &types.InventoryItem{} },
		},
		{
			Name: types.StakeholdersCollection,
			Columns: []grid.Column{
				{Name: "name", Header: "Name", Sortable: true, Searchable: true},
				{Name: "category", Header: "Category", Sortable: true},
				{Name: "contact", Header: "Contact", Searchable: true},
				{Name: "email", Header: "Email", Sortable: true, Searchable: true},
				{Name: "notes", Header: "Notes", Searchable: true},
			},
			TypeField: "category",
			CopyField: "email",
			newEntity: func() entity { return &types.Stakeholder{} },
		},
		{
			Name: types.DocumentsCollection,
			Columns: []grid.Column{
				{Name: "file_name", Header: "File", Sortable: true, Searchable: true},
				{Name: "file_type", Header: "Type", Sortable: true},
				{
					Name:     "file_size",
					Header:   "Size",
					Accessor: func(r types.Row) any { return r.Get("size") },
					Render:   func(r types.Row) string { return r.String("file_size") },
					Sortable: true,
				},
				{Name: "last_modified", Header: "Modified", Render: dateText("last_modified"), Sortable: true},
			},
			TypeField: "file_type",
			CopyField: "public_url",
		},
	}
}
