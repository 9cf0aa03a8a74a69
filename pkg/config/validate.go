package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

var (
	vOnce      sync.Once
	validate   *validator.Validate
	translator ut.Translator
)

// validatorInstance returns the shared validator, reporting fields by their
// yaml names.
func validatorInstance() (*validator.Validate, ut.Translator) {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("yaml")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		validate = v
		translator = trans
	})
	return validate, translator
}

// Validate checks the configuration. All field errors are reported at once.
func (c *Config) Validate() error {
	v, trans := validatorInstance()

	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		return fmt.Errorf("%w: %v", ErrInvalid, inv)
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		// drop the root struct name: "Config.search.per_page" -> "search.per_page"
		ns := fe.Namespace()
		if idx := strings.Index(ns, "."); idx >= 0 {
			ns = ns[idx+1:]
		}
		msgs = append(msgs, ns+": "+fe.Translate(trans))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}
