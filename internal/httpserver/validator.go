package httpserver

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/Skotchmaster/inventory_api/internal/service"
)

// Validator plugs go-playground/validator into echo.
type Validator struct {
	v *validator.Validate
}

type rule struct {
	tag string
	fn  validator.Func
}

var rules = []rule{
	{tag: "password_strength", fn: passwordStrength},
}

// NewValidator panics if a custom rule cannot be registered.
func NewValidator() *Validator {
	v, err := newValidator(rules)
	if err != nil {
		panic(err)
	}
	return v
}

func newValidator(custom []rule) (*Validator, error) {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	for _, r := range custom {
		if err := v.RegisterValidation(r.tag, r.fn); err != nil {
			return nil, fmt.Errorf("register %q validation: %w", r.tag, err)
		}
	}
	return &Validator{v: v}, nil
}

// passwordStrength requires at least one lowercase letter, one uppercase
// letter and one digit.
func passwordStrength(fl validator.FieldLevel) bool {
	var lower, upper, digit bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return &service.Error{Kind: service.ErrValidation, Message: "invalid body"}
	}

	msgs := make([]string, 0, len(fields))
	for _, fe := range fields {
		msgs = append(msgs, fieldMessage(fe))
	}
	return &service.Error{Kind: service.ErrValidation, Message: strings.Join(msgs, "; ")}
}

func fieldMessage(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", fe.Field(), fe.Param())
	case "password_strength":
		return fmt.Sprintf("%s must contain at least one lowercase letter, one uppercase letter and one digit", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
