package errors

import (
	"errors"
	"fmt"
)

// Session error taxonomy shared by the token, refresh, auth and server packages
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")

	// Token errors
	ErrMalformedToken      = errors.New("malformed token")
	ErrInvalidSignature    = errors.New("invalid token signature")
	ErrInvalidToken        = errors.New("invalid token")
	ErrExpiredAccessToken  = errors.New("access token expired")
	ErrExpiredRefreshToken = errors.New("refresh token expired")
	ErrRevokedToken        = errors.New("refresh token revoked")

	// Rotation outcomes
	ErrReuseDetected      = errors.New("refresh token reuse detected")
	ErrConcurrentRotation = errors.New("concurrent refresh token rotation")

	// Store errors
	ErrNotFound            = errors.New("not found")
	ErrDuplicateID         = errors.New("duplicate id")
	ErrAlreadyTransitioned = errors.New("already transitioned")
	ErrStoreUnavailable    = errors.New("store unavailable")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Unavailable marks err as a transient store failure while keeping the cause in the chain
func Unavailable(err error, op string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
