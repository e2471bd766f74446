// Package utils provides small, dependency-free helpers (env lookups, error
// wrapping) shared across the agent core and its demo CLI.
package utils

import "fmt"

// Wrap adds context to an error message. It returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
