package model

import "errors"

var (
	// User related errors
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username is not unique")

	// Token related errors
	ErrTokenConflict = errors.New("token changed concurrently")

	// Registered service errors
	ErrServiceNotFound = errors.New("registered service not found")
)
