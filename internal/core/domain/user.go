package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account holder onboarded through federated sign-in.
// Exactly one wallet exists per user; both are created in the same
// database transaction on first sign-in.
type User struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	ExternalID string    `json:"-"` // identity provider subject
	FullName   string    `json:"full_name"`
	CreatedAt  time.Time `json:"created_at"`
}
