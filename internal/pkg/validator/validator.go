// Package validator checks tagged request structs with go-playground/validator.
// A *Validator satisfies fiber.StructValidator, so Bind().Body validates
// after decoding.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

type Validator struct {
	v *validator.Validate
}

// Error lists every failed field of one struct.
type Error struct {
	Fields []FieldError
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

var (
	defaultOnce sync.Once
	defaultV    *Validator
)

// Default returns a process-wide Validator.
func Default() *Validator {
	defaultOnce.Do(func() { defaultV = New() })
	return defaultV
}

func (v *Validator) Validate(out any) error {
	return v.wrap(v.v.Struct(out), "")
}

// Var validates a single value against tag, naming it field in messages.
func (v *Validator) Var(field string, value any, tag string) error {
	return v.wrap(v.v.Var(value, tag), field)
}

func (v *Validator) wrap(err error, field string) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		name := fe.Field()
		if name == "" {
			name = field
		}
		out.Fields = append(out.Fields, FieldError{Field: name, Message: message(name, fe)})
	}
	return out
}

func message(name string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", name, fe.Param(), unit(fe.Kind()))
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", name, fe.Param(), unit(fe.Kind()))
	case "uuid":
		return name + " must be a valid id"
	default:
		return name + " is invalid"
	}
}

func unit(k reflect.Kind) string {
	switch k {
	case reflect.String:
		return " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		return " items"
	}
	return ""
}
