package user

import "errors"

var (
	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidInput indicates invalid registration or login input.
	ErrInvalidInput = errors.New("invalid user input")
	// ErrInvalidToken indicates an unknown or expired bearer token.
	ErrInvalidToken = errors.New("invalid token")
)
