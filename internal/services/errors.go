// Package services defines the business logic for accounts, chats, and
// messages. This file centralizes service-level error values so that they can
// be consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// Account-related errors.
var (
	// ErrInvalidEmail is returned when the email does not look like an address.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrWeakPassword is returned when the password is shorter than
	// MinPasswordLen or longer than bcrypt accepts.
	ErrWeakPassword = errors.New("password must be between 8 and 72 bytes")

	// ErrEmailTaken is returned by Signup when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned by Login for an unknown email and for
	// a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Chat-related errors.
var (
	// ErrChatNotFound indicates that the requested chat does not exist or is not
	// accessible to the current user.
	ErrChatNotFound = errors.New("chat not found")

	// ErrEmptyPrompt is returned when a message has no content.
	ErrEmptyPrompt = errors.New("message is empty")

	// ErrTooLong is returned when a message exceeds the configured rune limit.
	ErrTooLong = errors.New("message too long")
)
