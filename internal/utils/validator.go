package utils

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/apperr"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report fields by their JSON names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks s against its validate tags. The first failing field is
// reported as InvalidArgument.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Internal(err)
	}

	first := verrs[0]
	field, param := first.Field(), first.Param()
	switch first.Tag() {
	case "required":
		return apperr.InvalidArgument("%s is required", field)
	case "uuid":
		return apperr.InvalidArgument("%s must be a canonical UUID", field)
	case "oneof":
		return apperr.InvalidArgument("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "max":
		return apperr.InvalidArgument("%s must be at most %s characters long", field, param)
	case "min":
		return apperr.InvalidArgument("%s must be at least %s", field, param)
	default:
		return apperr.InvalidArgument("%s failed %s validation", field, first.Tag())
	}
}
