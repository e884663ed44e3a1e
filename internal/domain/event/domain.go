package event

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindAnonymousSession Kind = "anonymous_session"
	KindSignedUp         Kind = "signed_up"
	KindLoggedIn         Kind = "logged_in"
	KindRefreshRotated   Kind = "refresh_rotated"
	KindCartMerged       Kind = "cart_merged"
	KindCartPromoted     Kind = "cart_promoted"
)

// Identity is an auth lifecycle transition. Only public ids are carried;
// FromCartID is the anonymous cart a merge or promotion consumed.
type Identity struct {
	Kind       Kind       `json:"kind"`
	PublicID   *uuid.UUID `json:"publicId,omitempty"`
	CartID     uuid.UUID  `json:"cartId"`
	FromCartID *uuid.UUID `json:"fromCartId,omitempty"`
	At         time.Time  `json:"at"`
}
