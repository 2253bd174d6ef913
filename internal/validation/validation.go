// Package validation wraps go-playground/validator with English messages
// and reports failures as apperror field lists.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/iliyamo/ambulance-fleet-api/internal/apperror"
)

// Validator validates request structs. It also satisfies echo.Validator.
type Validator struct {
	v     *validator.Validate
	trans ut.Translator
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report the json name so clients can map errors back to their fields
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	return &Validator{v: v, trans: trans}
}

// Fields returns one FieldError per violated constraint, or nil.
func (x *Validator) Fields(i any) []apperror.FieldError {
	err := x.v.Struct(i)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return []apperror.FieldError{{Field: "", Message: err.Error()}}
	}
	out := make([]apperror.FieldError, 0, len(ves))
	for _, fe := range ves {
		out = append(out, apperror.FieldError{Field: fe.Field(), Message: fe.Translate(x.trans)})
	}
	return out
}

// Validate implements echo.Validator.
func (x *Validator) Validate(i any) error {
	if fields := x.Fields(i); len(fields) > 0 {
		return apperror.Validation(fields...)
	}
	return nil
}
