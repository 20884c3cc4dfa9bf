package utils

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidInput wraps every CheckInput failure.
var ErrInvalidInput = errors.New("invalid input")

// ContainsControl checks if a string contains control characters other than tab.
// The n-gram pad sentinel is a control character, so such input could fake padded features.
func ContainsControl(s string) bool {
	for _, r := range s {
		if r != '\t' && unicode.IsControl(r) {
			return true
		}
	}
	return false
}

// CheckInput validates a query or dictionary word received over IPC.
// maxLen counts runes; maxLen <= 0 disables the length check.
func CheckInput(s string, maxLen int) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidInput)
	}
	if maxLen > 0 {
		if n := utf8.RuneCountInString(s); n > maxLen {
			return fmt.Errorf("%w: %d characters exceeds limit %d", ErrInvalidInput, n, maxLen)
		}
	}
	if ContainsControl(s) {
		return fmt.Errorf("%w: contains control characters", ErrInvalidInput)
	}
	return nil
}
