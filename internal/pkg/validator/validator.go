package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Dispute reason validation
	validate.RegisterValidation("dispute_reason", func(fl validator.FieldLevel) bool {
		reason := fl.Field().String()
		validReasons := []string{"invalid_contact", "duplicate_lead", "wrong_procedure", "spam", "other"}
		for _, r := range validReasons {
			if reason == r {
				return true
			}
		}
		return false
	})

	// Promo discount type validation
	validate.RegisterValidation("discount_type", func(fl validator.FieldLevel) bool {
		dt := fl.Field().String()
		return dt == "percentage" || dt == "fixed"
	})

	// Dispute decision validation
	validate.RegisterValidation("dispute_decision", func(fl validator.FieldLevel) bool {
		d := fl.Field().String()
		return d == "approved" || d == "rejected"
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gt":
			errors[field] = "Value must be greater than " + err.Param()
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "dispute_reason":
			errors[field] = "Invalid dispute reason"
		case "dispute_decision":
			errors[field] = "Invalid decision. Must be: approved or rejected"
		case "discount_type":
			errors[field] = "Invalid discount type. Must be: percentage or fixed"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}
