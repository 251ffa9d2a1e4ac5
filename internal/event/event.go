// Package event carries token lifecycle notifications from the auth core to
// in-process subscribers such as the audit trail.
package event

import "time"

type Type string

const (
	TypeSignedIn         Type = "auth.signed_in"
	TypeSignInFailed     Type = "auth.sign_in_failed"
	TypeTokenRefreshed   Type = "auth.token_refreshed"
	TypeTokenInvalidated Type = "auth.token_invalidated"
	TypeTokenDropped     Type = "auth.token_dropped"
	TypeSignedOut        Type = "auth.signed_out"
)

type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Publisher interface {
	Publish(e Event)
}

type Bus interface {
	Publisher
	Subscribe() (<-chan Event, func())
}
