package directory

import "errors"

// Error kinds. Match with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrPersist    = errors.New("persist failed")
)

// Client-facing messages.
const (
	msgAddRequired          = "Locality, name, and designation are required"
	msgUpdateRequired       = "Locality, original name, new name, and designation are required"
	msgUpdateRequiredGlobal = "Original name, new name, and designation are required"
	msgDeleteRequired       = "Locality and name are required"
	msgDeleteRequiredGlobal = "Name is required"
	msgInvalidLocality      = "Locality must not contain '/'"
	msgInvalidDesignation   = "Invalid designation selected"
	msgInvalidPhone         = "Phone number must be exactly 10 digits"
	msgInvalidEmail         = "Invalid email format"
	msgLocalityNotFound     = "Locality not found"
	msgRepNotFound          = "Representative not found"
)

// Error is a domain failure carrying the message shown to API clients.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Kind.Error() + ": " + e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func invalid(msg string) error { return &Error{Kind: ErrValidation, Message: msg} }

func conflict(name string) error {
	return &Error{Kind: ErrConflict, Message: name + " already exists in this locality"}
}

func notFound(msg string) error { return &Error{Kind: ErrNotFound, Message: msg} }

// Message extracts the client-facing message from err, or "" if err is not
// a domain error.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
