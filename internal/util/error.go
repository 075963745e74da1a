package util

import (
	"errors"
	"fmt"
	"strings"
)

// FormatErrorList() condenses a list of errors into a single error with
// one indexed line per entry. Returns nil for an empty list.
func FormatErrorList(errList []error) error {
	if !HasErrors(errList) {
		return nil
	}
	lines := make([]string, 0, len(errList))
	for i, e := range errList {
		lines = append(lines, fmt.Sprintf("\t[%d] %v", i, e))
	}
	return errors.New(strings.Join(lines, "\n"))
}

// HasErrors() checks if an error list contains errors.
func HasErrors(errList []error) bool {
	return len(errList) > 0
}
