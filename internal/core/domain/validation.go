package domain

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

type structValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

var (
	validatorOnce sync.Once
	sharedValid   *structValidator
)

func getValidator() *structValidator {
	validatorOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// report json field names so failures read like the model output
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			field := fl.Field()
			if field.Kind() == reflect.Ptr {
				if field.IsNil() {
					return false
				}
				field = field.Elem()
			}
			return field.Kind() == reflect.String && strings.TrimSpace(field.String()) != ""
		})
		_ = v.RegisterTranslation("notblank", trans, func(u ut.Translator) error {
			return u.Add("notblank", "{0} must not be blank", true)
		}, func(u ut.Translator, fe validator.FieldError) string {
			msg, _ := u.T("notblank", fe.Namespace())
			return msg
		})

		sharedValid = &structValidator{validate: v, translator: trans}
	})
	return sharedValid
}

// validateStruct runs tag validation and folds field failures into one error.
func validateStruct(value any) error {
	sv := getValidator()
	err := sv.validate.Struct(value)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return fmt.Errorf("validator: %w", invalid)
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Translate(sv.translator))
	}
	return fmt.Errorf("invalid care record: %s", strings.Join(msgs, "; "))
}
