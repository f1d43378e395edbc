package projects

import (
	"fmt"
	"regexp"
)

// namePattern is the full identifier grammar for project and template names.
// Names are used directly to build filesystem paths, so anything outside this
// set (separators, dots, traversal sequences) must be rejected before any
// path is constructed.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateName checks an identifier against the project name grammar.
func ValidateName(name string) error {
	if name == "" {
		return NewError(ErrCodeInvalidName, "name is required", nil)
	}
	if !namePattern.MatchString(name) {
		return NewError(ErrCodeInvalidName,
			fmt.Sprintf("invalid name %q: only letters, digits, dashes and underscores are allowed", name), nil)
	}
	return nil
}
