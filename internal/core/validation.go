// Package core provides the energy domain model, input validation and the
// billing arithmetic.
//
// This file contains the validation rules applied to submitted entries.
// They are pure functions so the HTTP layer, the CLI and the service can
// share them.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldError is a user-correctable validation failure for one input field.
// Message is safe to show to the user as is.
type FieldError struct {
	Field   string
	Message string
	Err     error
}

func (e *FieldError) Error() string {
	return e.Message
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ValidateDate reports whether s is an exact YYYY-MM-DD calendar date.
// Out of range months and days, including February 29th on non leap
// years, are rejected.
func ValidateDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// ValidatePositiveNumber checks that value parses as a real number strictly
// greater than zero. Strings are trimmed before parsing; nil and any
// unsupported type count as not a number.
//
// Examples:
//
//	ValidatePositiveNumber("1500", "Power rating") -> 1500, nil
//	ValidatePositiveNumber(0, "Hours used")        -> "Hours used must be greater than 0"
//	ValidatePositiveNumber("abc", "Hours used")    -> "Hours used must be a valid number"
func ValidatePositiveNumber(value any, label string) (float64, error) {
	n, ok := toFloat(value)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, &FieldError{
			Field:   label,
			Message: fmt.Sprintf("%s must be a valid number", label),
			Err:     ErrInvalidNumber,
		}
	}
	if n <= 0 {
		return 0, &FieldError{
			Field:   label,
			Message: fmt.Sprintf("%s must be greater than 0", label),
			Err:     ErrNotPositive,
		}
	}
	return n, nil
}

// ValidAppliance reports whether name is non-empty after trimming.
func ValidAppliance(name string) bool {
	return strings.TrimSpace(name) != ""
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case string:
		v = strings.TrimSpace(v)
		if isHexLiteral(v) {
			return 0, false
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case *string:
		if v == nil {
			return 0, false
		}
		return toFloat(*v)
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// isHexLiteral reports whether s carries a 0x prefix after an optional sign.
// ParseFloat accepts hexadecimal floats; form input must be decimal.
func isHexLiteral(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
