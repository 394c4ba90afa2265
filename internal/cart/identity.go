package cart

import (
	"strings"

	"github.com/google/uuid"
)

// Identity names the owner of a cart: an authenticated user or a guest
// session, never both. Controllers build it from the request context.
type Identity struct {
	UserID    *uuid.UUID
	SessionID string
}

// UserIdentity builds an identity for an authenticated shopper.
func UserIdentity(userID uuid.UUID) Identity {
	return Identity{UserID: &userID}
}

// GuestIdentity builds an identity for an anonymous session.
func GuestIdentity(sessionID string) Identity {
	return Identity{SessionID: strings.TrimSpace(sessionID)}
}

// Valid reports whether the identity names an owner.
func (i Identity) Valid() bool {
	if i.UserID != nil && *i.UserID != uuid.Nil {
		return true
	}
	return strings.TrimSpace(i.SessionID) != ""
}

// IsUser reports whether the identity belongs to an authenticated user.
func (i Identity) IsUser() bool {
	return i.UserID != nil && *i.UserID != uuid.Nil
}
