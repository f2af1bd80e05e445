package auth

import "errors"

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotConfigured = errors.New("identity provider not configured")
	ErrNoEmail       = errors.New("identity token carries no email")
)
