package domain

import "errors"

var (
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTooManyAttempts    = errors.New("too many login attempts")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("access forbidden")
	ErrWeakSigningKey     = errors.New("signing key too weak")

	ErrProductNotFound  = errors.New("product not found")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrImageTooLarge    = errors.New("image too large")
)
