package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"buildwise/api/internal/home"
)

// FieldError is one entry of a VALIDATION_FAILED details list.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("phase", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return value == "" || home.ValidPhase(home.PhaseKey(value))
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" {
			return true
		}
		for _, c := range home.Categories {
			if string(c) == value {
				return true
			}
		}
		return false
	})
	_ = v.RegisterValidation("taskstatus", func(fl validator.FieldLevel) bool {
		switch home.TaskStatus(fl.Field().String()) {
		case "", home.TaskTodo, home.TaskInProgress, home.TaskBlocked, home.TaskDone:
			return true
		}
		return false
	})
	return v
}

// validateInput checks validate tags on a request DTO.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return invalid(err.Error(), nil)
	}
	details := make([]FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, FieldError{
			Field:   fieldPath(fe),
			Tag:     fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	return invalid("Validation failed", details)
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid URL"
	case "min":
		return fmt.Sprintf("must have at least %s item(s) or characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have at most %s item(s) or characters", fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	case "phase":
		return "must be one of: planning preconstruction exterior interior"
	case "category":
		return "is not a known document category"
	case "taskstatus":
		return "must be one of: todo in_progress blocked done"
	case "gte":
		return "must be at least " + fe.Param()
	}
	return "is invalid"
}

// nonNegative rejects a negative amount as a field error.
func nonNegative(field string, value *decimal.Decimal) error {
	if value == nil || !value.IsNegative() {
		return nil
	}
	return invalid("Validation failed", []FieldError{{Field: field, Tag: "gte", Message: "must be at least 0"}})
}
