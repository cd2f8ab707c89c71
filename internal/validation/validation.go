// Package validation checks request payloads before any store access.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"relaychat/backend/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report wire names (chatId) instead of Go field names (ChatID).
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct validates s against its `validate` tags and returns a ValidationError
// naming the first failing field.
func Struct(s any) error {
	return wrap(validate.Struct(s))
}

// Var validates a single value against tag.
func Var(field any, tag string) error {
	return wrap(validate.Var(field, tag))
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		name := fe.Field()
		if name == "" {
			name = "value"
		}
		msg := fmt.Sprintf("%s failed %s", name, fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s failed %s=%s", name, fe.Tag(), fe.Param())
		}
		return &apperr.Error{Kind: apperr.KindValidation, Key: "error.validation", Message: msg, Err: err}
	}
	return &apperr.Error{Kind: apperr.KindValidation, Key: "error.validation", Message: "invalid input", Err: err}
}
