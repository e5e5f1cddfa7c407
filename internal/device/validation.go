package device

import "fmt"

// maxNameLength bounds display names rendered by the web page.
const maxNameLength = 64

// ValidateRecord checks a record before it enters the registry.
func ValidateRecord(r Record) error {
	if r.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidDevice)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: name is required for %s", ErrInvalidDevice, r.ID)
	}
	if len(r.Name) > maxNameLength {
		return fmt.Errorf("%w: name for %s exceeds %d characters", ErrInvalidDevice, r.ID, maxNameLength)
	}
	if r.Pin < 0 {
		return fmt.Errorf("%w: pin for %s must not be negative", ErrInvalidDevice, r.ID)
	}
	if _, err := ParseState(string(r.State)); err != nil {
		return fmt.Errorf("%s: %w", r.ID, err)
	}
	return nil
}
