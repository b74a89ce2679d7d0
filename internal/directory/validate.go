package directory

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"repdir-backend/internal/model"
)

var (
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// go-playground/validator/v10 with three directory-specific tags. The
// builtin "oneof" splits on spaces so it cannot express "Nagar Sevak", and
// the builtin "email" is stricter than the local@domain.tld shape we accept.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	must(v.RegisterValidation("designation", func(fl validator.FieldLevel) bool {
		return model.IsDesignation(fl.Field().String())
	}))
	must(v.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("simpleemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// required holds the fields whose absence is reported as one message.
type required struct {
	Locality    string `validate:"required"`
	Name        string `validate:"required"`
	Designation string `validate:"required"`
}

type renameFields struct {
	Original    string `validate:"required"`
	Name        string `validate:"required"`
	Designation string `validate:"required"`
}

// checkFields runs the checks in their reporting order: designation,
// phone, email. Presence is checked by the caller since its message
// depends on the operation.
func checkFields(rep model.Representative) error {
	if err := validate.Var(rep.Designation, "designation"); err != nil {
		return invalid(msgInvalidDesignation)
	}
	if err := validate.Var(rep.Phone, "omitempty,phone10"); err != nil {
		return invalid(msgInvalidPhone)
	}
	if err := validate.Var(rep.Email, "omitempty,simpleemail"); err != nil {
		return invalid(msgInvalidEmail)
	}
	return nil
}

// cleanRepresentative trims surrounding whitespace from every field.
func cleanRepresentative(rep model.Representative) model.Representative {
	return model.Representative{
		Name:        strings.TrimSpace(rep.Name),
		Designation: strings.TrimSpace(rep.Designation),
		Phone:       strings.TrimSpace(rep.Phone),
		Email:       strings.TrimSpace(rep.Email),
	}
}

// ValidateAdd checks an add request in reporting order and returns the
// cleaned representative.
func ValidateAdd(locality string, rep model.Representative) (model.Representative, error) {
	rep = cleanRepresentative(rep)
	in := required{Locality: model.LocalityKey(locality), Name: rep.Name, Designation: rep.Designation}
	if err := validate.Struct(in); err != nil {
		return rep, invalid(msgAddRequired)
	}
	// Localities are addressed as a single path segment.
	if err := validate.Var(in.Locality, "excludes=/"); err != nil {
		return rep, invalid(msgInvalidLocality)
	}
	if err := checkFields(rep); err != nil {
		return rep, err
	}
	return rep, nil
}

// ValidateUpdate checks an update request in reporting order. The locality
// may be omitted only when global lookup is allowed.
func ValidateUpdate(id Identifier, rep model.Representative, global bool) (model.Representative, error) {
	rep = cleanRepresentative(rep)
	msg := msgUpdateRequired
	if global {
		msg = msgUpdateRequiredGlobal
	}
	in := renameFields{Original: strings.TrimSpace(id.Name), Name: rep.Name, Designation: rep.Designation}
	if err := validate.Struct(in); err != nil || (!global && model.LocalityKey(id.Locality) == "") {
		return rep, invalid(msg)
	}
	if err := checkFields(rep); err != nil {
		return rep, err
	}
	return rep, nil
}

// ValidateRemove checks a delete request identifier.
func ValidateRemove(id Identifier, global bool) error {
	msg := msgDeleteRequired
	if global {
		msg = msgDeleteRequiredGlobal
	}
	if err := validate.Var(strings.TrimSpace(id.Name), "required"); err != nil || (!global && model.LocalityKey(id.Locality) == "") {
		return invalid(msg)
	}
	return nil
}
