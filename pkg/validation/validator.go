package validation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/platinummonkey/larder/pkg/auth"
)

// BcryptMaxBytes is the longest password bcrypt accepts
const BcryptMaxBytes = 72

// Messages maps "field.tag" (json field name, index stripped) to the message
// reported when that rule fails
type Messages map[string]string

// New returns a validator that reports json field names and understands the
// bcryptmax tag. Callers own the instance and may register more rules on it.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	// Registration only fails on an empty tag or nil func
	_ = v.RegisterValidation("bcryptmax", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= BcryptMaxBytes
	})

	return v
}

// Struct validates s and collects every failed rule into one
// *auth.ValidationError carrying summary. Rules without an entry in msgs are
// reported as "<field> is invalid". Repeated messages are reported once.
func Struct(ctx context.Context, v *validator.Validate, s interface{}, summary string, msgs Messages) error {
	err := v.StructCtx(ctx, s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := auth.NewValidationError(summary)
	seen := make(map[string]bool)
	for _, fe := range fieldErrs {
		field := baseField(fe.Field())
		msg, ok := msgs[field+"."+fe.Tag()]
		if !ok {
			msg = field + " is invalid"
		}
		if seen[msg] {
			continue
		}
		seen[msg] = true

		out.Fields = append(out.Fields, auth.FieldError{Field: field, Message: msg})
	}
	return out
}

// baseField strips a slice index, "ingredients[2]" becomes "ingredients"
func baseField(name string) string {
	if i := strings.IndexByte(name, '['); i >= 0 {
		return name[:i]
	}
	return name
}
