package model

import "time"

// RegisteredService is an integrating application identified by its API key.
type RegisteredService struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	APIKey    string    `json:"api_key"`
	CreatedAt time.Time `json:"created"`
}
