package types

// Employment arrangements.
const (
	ArrangementRemote = "remote"
	ArrangementOnsite = "onsite"
	ArrangementHybrid = "hybrid"
)

// Personnel statuses. New employees and students start as pending.
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
	StatusPending  = "pending"
)

// Inventory statuses.
const (
	InventoryActive   = "Active"
	InventoryPending  = "pending"
	InventoryInactive = "In-active"
)

// Stakeholder categories.
const (
	CategorySETA = "seta"
	CategoryUL   = "ul"
	CategoryZCC  = "zcc"
)

// Employee is a staff member.
type Employee struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name" validate:"required"`
	Number      string `json:"number" validate:"required"`
	Position    string `json:"position" validate:"required"`
	Arrangement string `json:"arrangement" validate:"required,oneof=remote onsite hybrid"`
	Status      string `json:"status,omitempty" validate:"omitempty,oneof=Active Inactive pending"`
	StartDate   string `json:"start_date" validate:"required,datetime=2006-01-02"`
}

// Fields returns the employee as row fields. An empty status becomes pending.
func (e Employee) Fields() map[string]any {
	status := e.Status
	if status == "" {
		status = StatusPending
	}
	return map[string]any{
		"name":        e.Name,
		"number":      e.Number,
		"position":    e.Position,
		"arrangement": e.Arrangement,
		"status":      status,
		"start_date":  e.StartDate,
	}
}

// Student is an enrolled learner. Students share the employee shape.
type Student struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name" validate:"required"`
	Number      string `json:"number" validate:"required"`
	Position    string `json:"position" validate:"required"`
	Arrangement string `json:"arrangement" validate:"required,oneof=remote onsite hybrid"`
	Status      string `json:"status,omitempty" validate:"omitempty,oneof=Active Inactive pending"`
	StartDate   string `json:"start_date" validate:"required,datetime=2006-01-02"`
}

// Fields returns the student as row fields.
func (s Student) Fields() map[string]any {
	return Employee(s).Fields()
}

// InventoryItem is a piece of tracked equipment.
type InventoryItem struct {
	ID       string `json:"id,omitempty"`
	ItemName string `json:"item_name" validate:"required"`
	ModelNum string `json:"model_num" validate:"required"`
	Operator string `json:"operator" validate:"required"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Quantity int64  `json:"quantity" validate:"gte=0"`
	Status   string `json:"status" validate:"required,oneof=Active pending In-active"`
	Details  string `json:"details,omitempty"`
}

// Fields returns the item as row fields.
func (i InventoryItem) Fields() map[string]any {
	return map[string]any{
		"item_name": i.ItemName,
		"model_num": i.ModelNum,
		"operator":  i.Operator,
		"date":      i.Date,
		"quantity":  i.Quantity,
		"status":    i.Status,
		"details":   i.Details,
	}
}

// Stakeholder is an external partner organisation contact.
type Stakeholder struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name" validate:"required"`
	Category string `json:"category" validate:"required,oneof=seta ul zcc"`
	Contact  string `json:"contact,omitempty"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Notes    string `json:"notes,omitempty"`
}

// Fields returns the stakeholder as row fields.
func (s Stakeholder) Fields() map[string]any {
	return map[string]any{
		"name":     s.Name,
		"category": s.Category,
		"contact":  s.Contact,
		"email":    s.Email,
		"notes":    s.Notes,
	}
}
