// Package validation provides custom validation rules for the application.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/keymanager/internal/errors"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// ByteLength validates the length of a string in bytes of its UTF-8 encoding,
// unlike validation.Length and validation.RuneLength. Empty strings pass so that
// Required stays in charge of them.
type ByteLength struct {
	Min int
	Max int
}

// Validate checks the byte length of value.
func (b ByteLength) Validate(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_byte_length_type", "must be a string")
	}
	if s == "" {
		return nil
	}
	if len(s) < b.Min || len(s) > b.Max {
		return validation.NewError(
			"validation_byte_length",
			fmt.Sprintf("must be between %d and %d bytes", b.Min, b.Max),
		)
	}
	return nil
}

// ValidUTF8 validates that a string is well-formed UTF-8.
var ValidUTF8 = validation.NewStringRuleWithError(
	utf8.ValidString,
	validation.NewError("validation_utf8", "must be valid UTF-8"),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// NoControlChars validates that a string holds no control characters, which keeps
// names printable in logs and listings.
var NoControlChars = validation.NewStringRuleWithError(
	func(s string) bool {
		return !strings.ContainsFunc(s, func(r rune) bool {
			return r < 0x20 || r == 0x7f
		})
	},
	validation.NewError("validation_no_control_chars", "must not contain control characters"),
)
