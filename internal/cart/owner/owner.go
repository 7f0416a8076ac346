package owner

import (
	"github.com/google/uuid"
)

// CartOwner identifies who a cart request acts on behalf of: a logged-in
// user or an anonymous visitor carrying a guest credential. Exactly one of
// the two is set.
type CartOwner struct {
	userID     uuid.UUID
	guestToken string
}

func Authenticated(userID uuid.UUID) CartOwner {
	return CartOwner{userID: userID}
}

func Guest(token string) CartOwner {
	return CartOwner{guestToken: token}
}

func (o CartOwner) IsUser() bool {
	return o.userID != uuid.Nil
}

func (o CartOwner) UserID() uuid.UUID {
	return o.userID
}

func (o CartOwner) GuestToken() string {
	return o.guestToken
}
