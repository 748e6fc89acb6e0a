// Package validate checks decoded configuration and route table structs
// against their `validate` struct tags.
package validate

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	instance *validator.Validate
	once     sync.Once
)

var reIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())

		// Use json tags as field names for better error messages
		instance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := fld.Tag.Get("json")
			if name == "-" {
				return ""
			}
			if idx := strings.Index(name, ","); idx != -1 {
				name = name[:idx]
			}
			if name == "" {
				return fld.Name
			}
			return name
		})

		// Converter and parameter names.
		_ = instance.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
			return reIdentifier.MatchString(fl.Field().String())
		})
	})
	return instance
}

// FieldError is one failed constraint.
type FieldError struct {
	// Path is the JSON path of the field, e.g. "routes[0].handler".
	Path string

	// Tag is the failed constraint.
	Tag string

	// Message describes the failure.
	Message string
}

func (e FieldError) String() string {
	return e.Path + ": " + e.Message
}

// Error lists every failed constraint of a struct.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}

// Struct validates s. Failed constraints are returned as *Error.
func Struct(s any) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err
	}

	result := &Error{}
	for _, e := range verrs {
		ns := e.Namespace()
		// Strip top struct name
		if idx := strings.Index(ns, "."); idx != -1 {
			ns = ns[idx+1:]
		}
		result.Fields = append(result.Fields, FieldError{
			Path:    ns,
			Tag:     e.Tag(),
			Message: message(e),
		})
	}
	return result
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "required_without_all":
		return "is required when " + strings.ReplaceAll(e.Param(), " ", ", ") + " are not set"
	case "required_with":
		return "is required when " + e.Param() + " is set"
	case "excluded_with":
		return "cannot be combined with " + e.Param()
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", e.Param())
	case "identifier":
		return fmt.Sprintf("%q is not a valid identifier", e.Value())
	default:
		return fmt.Sprintf("failed validation (%s)", e.Tag())
	}
}
