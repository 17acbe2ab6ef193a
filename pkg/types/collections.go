package types

// Standard collection names.
const (
	EmployeesCollection    = "employees"
	StudentsCollection     = "students"
	InventoryCollection    = "inventory"
	StakeholdersCollection = "stakeholders"
	DocumentsCollection    = "documents"
)

// RecordCollections lists the collections served by the record store.
var RecordCollections = []string{
	EmployeesCollection,
	StudentsCollection,
	InventoryCollection,
	StakeholdersCollection,
}

// StandardCollections lists every collection, including documents which are
// served by the blob store.
var StandardCollections = append(append([]string{}, RecordCollections...), DocumentsCollection)

// IsRecordCollection reports whether name is served by the record store.
func IsRecordCollection(name string) bool {
	for _, c := range RecordCollections {
		if c == name {
			return true
		}
	}
	return false
}
