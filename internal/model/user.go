package model

import "time"

type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Token        *TokenPair `json:"-"`
	CreatedAt    time.Time  `json:"created"`
	UpdatedAt    time.Time  `json:"updated"`
}

// RefreshValue returns the refresh value of the current pair, or "" when
// the user holds no pair. Stores use it as the compare-and-swap witness.
func (u User) RefreshValue() string {
	if u.Token == nil {
		return ""
	}
	return u.Token.RefreshValue
}

// WithToken returns a copy of the user owning next (nil drops the pair).
func (u User) WithToken(next *TokenPair, now time.Time) User {
	if next != nil {
		cp := *next
		next = &cp
	}
	u.Token = next
	u.UpdatedAt = now.UTC()
	return u
}

// UserView is the public projection of a user.
type UserView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}

func (u User) View() UserView {
	return UserView{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

type Authentication struct {
	Token   string `json:"token"`
	Refresh string `json:"refresh"`
}

type AuthenticatedUser struct {
	User UserView       `json:"user"`
	Auth Authentication `json:"auth"`
}
