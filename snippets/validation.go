package snippets

import (
	"fmt"
	"strings"
)

const (
	MaxTitleLength      = 100
	MaxContentLength    = 10000
	MaxSystemRoleLength = 80
)

// Validator provides centralized validation for user-supplied snippet
// fields. All validators sanitize their input before checking limits and
// return the sanitized value.
type Validator struct{}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// sanitizeString strips null bytes and other control characters and trims
// surrounding whitespace.
func sanitizeString(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' {
			return -1
		}
		if r == 0x7F {
			return -1
		}
		return r
	}, input)
	return strings.TrimSpace(cleaned)
}

// ValidateTitle checks the snippet title (required, at most 100 characters).
func (v *Validator) ValidateTitle(title string) (string, error) {
	sanitized := sanitizeString(title)
	if sanitized == "" {
		return "", fmt.Errorf("%w: title is required", ValidationErr)
	}
	if len(sanitized) > MaxTitleLength {
		return "", fmt.Errorf("%w: title must be %d characters or less", ValidationErr, MaxTitleLength)
	}
	return sanitized, nil
}

// ValidateContent checks the snippet body (required, at most 10,000
// characters).
func (v *Validator) ValidateContent(content string) (string, error) {
	sanitized := sanitizeString(content)
	if sanitized == "" {
		return "", fmt.Errorf("%w: content is required", ValidationErr)
	}
	if len(sanitized) > MaxContentLength {
		return "", fmt.Errorf("%w: content must be %d characters or less", ValidationErr, MaxContentLength)
	}
	return sanitized, nil
}

// ValidateSystemRole checks the optional system role field (at most 80
// characters).
func (v *Validator) ValidateSystemRole(systemRole string) (string, error) {
	sanitized := sanitizeString(systemRole)
	if len(sanitized) > MaxSystemRoleLength {
		return "", fmt.Errorf("%w: system role must be %d characters or less", ValidationErr, MaxSystemRoleLength)
	}
	return sanitized, nil
}
