package httpserver

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"agenda/errs"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var phonePattern = regexp.MustCompile(`^[0-9]{8,15}$`)

type CustomValidator struct {
	validate *validator.Validate
}

func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if label := fld.Tag.Get("label"); label != "" {
			return label
		}
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("phone", validatePhone)
	return &CustomValidator{validate: v}
}

// Validate reports every failing field as an EINVALID error detail.
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validate.Struct(i)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errs.Wrap(errs.EINVALID, err, "validation error")
	}

	details := make([]errs.Detail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, errs.Detail{
			PropertyName: fe.Field(),
			Code:         fe.Tag(),
			Message:      fieldMessage(fe),
		})
	}
	return errs.Invalid("validation error", details...)
}

func validatePhone(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	return phonePattern.MatchString(fl.Field().String())
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "notblank":
		return field + " must not be blank"
	case "email":
		return field + " must be a valid email address"
	case "phone":
		return field + " must have between 8 and 15 digits"
	case "uuid":
		return field + " must be a valid UUID"
	case "number":
		return field + " must be numeric"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must have at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must have at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	}
	return field + " is invalid"
}
