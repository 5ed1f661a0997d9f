package auth

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a credentialed principal.
type Account struct {
	ID                 uuid.UUID
	Email              string
	PasswordHash       string
	IsActive           bool
	MustChangePassword bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
