// Package uid issues random record and request identifiers.
package uid

import "github.com/google/uuid"

// New returns a random v4 UUID string.
func New() string {
	return uuid.New().String()
}

// IsValid reports whether id parses as a UUID. Handlers use it to turn
// malformed path ids into 404s without a store lookup.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
