package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	// Login failure. Unknown email and wrong password are collapsed into
	// this single error on purpose: the caller must not be able to tell
	// which one happened.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Current password check failed during password change
	ErrIncorrectPassword = errors.New("current password is incorrect")

	// Any token validation failure: bad signature, wrong type, expired,
	// unknown or already rotated jti, subject mismatch. Collapsed into one
	// error so the response never works as an oracle.
	ErrInvalidToken = errors.New("could not validate credentials")

	// No credential was presented at all. Distinct from ErrInvalidToken.
	ErrNotAuthenticated = errors.New("not authenticated")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExists   = errors.New("refresh token already exists")
)
