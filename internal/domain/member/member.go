package member

import (
	"time"

	"github.com/google/uuid"
)

// Member represents an identity participating in a shared ledger
type Member struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// ErrMemberNotFound indicates missing member
type ErrMemberNotFound struct {
	MemberID uuid.UUID
}

func (e ErrMemberNotFound) Error() string {
	return "member not found: " + e.MemberID.String()
}
