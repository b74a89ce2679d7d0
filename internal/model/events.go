package model

// ChangeAction names the kind of mutation a ChangeEvent records.
type ChangeAction string

const (
	ActionAdded   ChangeAction = "added"
	ActionUpdated ChangeAction = "updated"
	ActionDeleted ChangeAction = "deleted"
)

// ChangeEvent is emitted after a mutation has been persisted.
// It is published to the directory.changes topic keyed by locality.
type ChangeEvent struct {
	Action         ChangeAction    `json:"action"`
	Locality       string          `json:"locality"`
	Name           string          `json:"name"`
	PreviousName   string          `json:"previous_name,omitempty"` // set on rename
	Representative *Representative `json:"representative,omitempty"`
	Timestamp      string          `json:"timestamp"`
}

// AddRequest is the POST /api/representatives body.
type AddRequest struct {
	Locality    string `json:"locality"`
	Name        string `json:"name"`
	Designation string `json:"designation"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
}

// UpdateRequest is the PUT /api/representatives body.
type UpdateRequest struct {
	Locality     string `json:"locality"`
	OriginalName string `json:"originalName"`
	Name         string `json:"name"`
	Designation  string `json:"designation"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
}

// DeleteRequest is the DELETE /api/representatives body.
type DeleteRequest struct {
	Locality string `json:"locality"`
	Name     string `json:"name"`
}

// Representative builds the stored value from the request fields.
func (r AddRequest) Representative() Representative {
	return Representative{Name: r.Name, Designation: r.Designation, Phone: r.Phone, Email: r.Email}
}

// Representative builds the replacement value from the request fields.
func (r UpdateRequest) Representative() Representative {
	return Representative{Name: r.Name, Designation: r.Designation, Phone: r.Phone, Email: r.Email}
}
