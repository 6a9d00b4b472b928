package model

import "errors"

var (
	// User related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token related errors. Clients never see which of these occurred;
	// the distinction exists for logs and tests only.
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")

	// Task related errors
	ErrTaskNotFound = errors.New("task not found")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrAccessDenied = errors.New("access denied")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
