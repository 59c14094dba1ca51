package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yuvrajinbhakti/UHaveToDo/internal/domain/entities"
)

// newValidator reports fields by their JSON names so messages match the API.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// RequestValidator checks bound request bodies with the same rules and error
// type as the services. It implements echo.Validator.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates a request validator
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: newValidator()}
}

// Validate validates structs
func (rv *RequestValidator) Validate(i interface{}) error {
	return validateStruct(rv.validate, i)
}

// validateStruct runs the struct tags of s and converts failures into a
// *entities.ValidationError.
func validateStruct(v *validator.Validate, s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &entities.ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, entities.FieldError{
			Field: fieldName(fe),
			Rule:  fe.Tag(),
		})
	}
	return out
}

// fieldName turns "Task.tags[3]" into "tags".
func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}
