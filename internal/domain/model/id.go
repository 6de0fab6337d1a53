package model

import "github.com/google/uuid"

// generateID returns a random UUIDv4 string used as a primary key.
func generateID() string {
	return uuid.NewString()
}

// ValidID reports whether s parses as a UUID.
func ValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
