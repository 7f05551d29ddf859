package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var partReferencePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{1,30}[A-Z0-9]$`)

// PartReference is a supplier-scoped part code, normalized to uppercase
// alphanumerics with dashes. Immutable once built.
type PartReference struct {
	value string
}

func NewPartReference(raw string) (PartReference, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.Join(strings.Fields(normalized), "-")
	if !partReferencePattern.MatchString(normalized) {
		return PartReference{}, NewValidationError(fmt.Sprintf("invalid part reference: %q", raw))
	}
	return PartReference{value: normalized}, nil
}

func (r PartReference) String() string { return r.value }
func (r PartReference) IsZero() bool   { return r.value == "" }
