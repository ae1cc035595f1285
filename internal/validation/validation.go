// Package validation checks field-level constraints on drafts before an
// entity is constructed or mutated. Every violated constraint is reported,
// not just the first.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mmynk/billspace/internal/models"
)

// ErrValidation is matched by every *Error via errors.Is.
var ErrValidation = errors.New("validation failed")

// Violation describes one failed constraint.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Error lists every constraint a draft violated.
type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrValidation) succeed.
func (e *Error) Is(target error) bool {
	return target == ErrValidation
}

var (
	usernamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	emojiPattern    = regexp.MustCompile(`^(?:[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}](?:\x{FE0F})?(?:\x{200D})?)+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name so callers can map them to inputs.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	// Decimals are validated through their string form.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "emailaddr", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "password", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	mustRegister(v, "emoji", func(fl validator.FieldLevel) bool {
		return emojiPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "currency", func(fl validator.FieldLevel) bool {
		return models.Currency(fl.Field().String()).Valid()
	})
	mustRegister(v, "interval", func(fl validator.FieldLevel) bool {
		return models.Interval(fl.Field().String()).Valid()
	})
	mustRegister(v, "role", func(fl validator.FieldLevel) bool {
		return models.Role(fl.Field().String()).Valid()
	})
	mustRegister(v, "money", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative()
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %q: %v", tag, err))
	}
}

// Struct validates a tagged draft. It returns nil or an *Error that also
// carries any extra violations passed in.
func Struct(draft any, extra ...Violation) error {
	var violations []Violation

	if err := validate.Struct(draft); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("failed to validate: %w", err)
		}
		for _, fe := range fieldErrs {
			violations = append(violations, Violation{
				Field:   fieldPath(fe),
				Rule:    fe.Tag(),
				Message: message(fe),
			})
		}
	}

	violations = append(violations, extra...)
	if len(violations) == 0 {
		return nil
	}
	return &Error{Violations: violations}
}

// Fail builds an *Error from explicit violations.
func Fail(violations ...Violation) error {
	return &Error{Violations: violations}
}

// Money checks that amount is non-negative and has no more decimal places
// than the currency's minor unit. It returns nil when the amount is valid.
func Money(field string, currency models.Currency, amount decimal.Decimal) *Violation {
	if amount.IsNegative() {
		return &Violation{Field: field, Rule: "money", Message: "must be a non-negative amount"}
	}
	if !currency.Valid() {
		// The currency field reports its own violation.
		return nil
	}
	digits := currency.MinorDigits()
	if !amount.Equal(amount.Truncate(digits)) {
		return &Violation{
			Field:   field,
			Rule:    "scale",
			Message: fmt.Sprintf("must have at most %d decimal places for %s", digits, currency),
		}
	}
	return nil
}

// StrongPassword reports whether s has at least 8 characters including a
// lowercase letter, an uppercase letter, a digit and a symbol.
func StrongPassword(s string) bool {
	if len([]rune(s)) < 8 {
		return false
	}
	var lower, upper, digit, symbol bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case r == '_' || r == ' ' || r == '\t' || r == '\n':
		default:
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}

// fieldPath strips the top-level struct name from the namespace,
// e.g. "billDraft.splits[0].user_id" becomes "splits[0].user_id".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters long", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters long", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "nefield":
		return "must differ from the other party"
	case "username":
		return "must only contain lowercase letters, numbers and underscores"
	case "emailaddr":
		return "must be a valid email address"
	case "password":
		return "must be at least 8 characters and contain an uppercase letter, a lowercase letter, a number and a symbol"
	case "emoji":
		return "must be an emoji"
	case "currency":
		return "must be one of AUD, CAD, EUR, GBP, HKD, JPY, NTD, USD"
	case "interval":
		return "must be one of day, week, month, year"
	case "role":
		return "must be one of owner, editor, viewer"
	case "money":
		return "must be a non-negative amount"
	case "uuid":
		return "must be a UUID"
	}
	return fmt.Sprintf("failed %q constraint", fe.Tag())
}
