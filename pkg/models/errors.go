package models

import "fmt"

// ErrUnknownSection reports a section type outside the known set.
func ErrUnknownSection(section SectionType) error {
	return fmt.Errorf("unknown section type %q", section)
}
