package domain

import (
	"github.com/google/uuid"
)

// NewCycleID generates a UUIDv7 string identifying one export cycle.
func NewCycleID() string {
	return uuid.Must(uuid.NewV7()).String()
}
