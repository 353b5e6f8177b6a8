package enums

import "fmt"

// EventKind distinguishes the two ledger event tables.
type EventKind string

const (
	EventKindContribution   EventKind = "contribution"
	EventKindQuantityChange EventKind = "quantity_change"
)

var validEventKinds = []EventKind{
	EventKindContribution,
	EventKindQuantityChange,
}

// IsValid reports whether the value matches a known ledger event kind.
func (k EventKind) IsValid() bool {
	for _, candidate := range validEventKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseEventKind converts raw input into EventKind.
func ParseEventKind(value string) (EventKind, error) {
	for _, candidate := range validEventKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event kind %q", value)
}
