package grid

import "github.com/mesh-intelligence/backoffice/pkg/types"

// SortKey names the column a view is sorted by.
type SortKey struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc"`
}

// State is the derived, never persisted, UI state of a view.
type State struct {
	SearchText string   `json:"search_text,omitempty"`
	TypeFilter []string `json:"type_filter,omitempty"`
	Sort       *SortKey `json:"sort,omitempty"`
	PageIndex  int      `json:"page_index"`
	PageSize   int      `json:"page_size"`
	Selected   []string `json:"selected,omitempty"`
}

// Snapshot is an immutable picture of a view after a call. Rows holds the
// current page in rendered order.
type Snapshot struct {
	Rows      []types.Row `json:"rows"`
	State     State       `json:"state"`
	Filtered  int         `json:"filtered"`
	Total     int         `json:"total"`
	PageCount int         `json:"page_count"`
}

// CanPrevious reports whether PreviousPage would move.
func (s Snapshot) CanPrevious() bool {
	return s.State.PageIndex > 0
}

// CanNext reports whether NextPage would move.
func (s Snapshot) CanNext() bool {
	return s.State.PageIndex+1 < s.PageCount
}

// IsSelected reports whether id is in the selection.
func (s Snapshot) IsSelected(id string) bool {
	for _, sel := range s.State.Selected {
		if sel == id {
			return true
		}
	}
	return false
}

// IDs returns the ids of the rows on the page.
func (s Snapshot) IDs() []string {
	ids := make([]string, len(s.Rows))
	for i, r := range s.Rows {
		ids[i] = r.ID
	}
	return ids
}
