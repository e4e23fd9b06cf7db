package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// KeySeparator joins the components of composite keys such as notification dedup keys.
const KeySeparator = "|"

var (
	once     sync.Once
	validate *validator.Validate
)

// FieldError describes one failed rule on one field.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
}

func (f FieldError) String() string {
	if f.Param != "" {
		return f.Field + " failed on " + f.Tag + "=" + f.Param
	}
	return f.Field + " failed on " + f.Tag
}

// ValidationErrors collects every failed rule of a struct.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.String()
	}
	return strings.Join(parts, "; ")
}

// Fields lists the names of the failed fields in order.
func (v ValidationErrors) Fields() []string {
	fields := make([]string, len(v))
	for i, fe := range v {
		fields[i] = fe.Field
	}
	return fields
}

// ValidateStruct runs the registered rules, including the custom notblank and keysafe tags.
func ValidateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	failures := make(ValidationErrors, 0, len(ve))
	for _, fe := range ve {
		failures = append(failures, FieldError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
		})
	}
	return failures
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("notblank", notBlank)
		_ = validate.RegisterValidation("keysafe", keySafe)
	})
	return validate
}

// notBlank rejects strings made only of whitespace.
func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(field.String()) != ""
}

// keySafe rejects strings that contain the composite key separator.
func keySafe(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return true
	}
	return !strings.Contains(field.String(), KeySeparator)
}
