// Package services defines the business logic for accounts, journals,
// habits, personalization context and chat. This file centralizes
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// Account errors.
var (
	// ErrWeakPassword is returned when a signup password is shorter than the
	// configured minimum.
	ErrWeakPassword = errors.New("password too short")

	// ErrPasswordTooLong is returned when a password exceeds
	// MaxPasswordBytes, the most bcrypt will hash.
	ErrPasswordTooLong = errors.New("password too long")

	// ErrInvalidEmail is returned for blank or malformed email addresses.
	ErrInvalidEmail = errors.New("invalid email")

	// ErrInvalidUsername is returned for blank usernames.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrAccountExists is returned when the email or username is taken.
	ErrAccountExists = errors.New("email or username already exists")

	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned for missing, expired or tampered tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// Journal and habit errors.
var (
	// ErrEmptyEntry is returned when a journal entry is blank.
	ErrEmptyEntry = errors.New("journal entry is empty")

	// ErrEntryTooLong is returned when a journal entry exceeds the rune limit.
	ErrEntryTooLong = errors.New("journal entry too long")

	// ErrEmptyHabitName is returned when a habit name is blank.
	ErrEmptyHabitName = errors.New("habit name is empty")

	// ErrHabitNameTooLong is returned when a habit name exceeds the rune limit.
	ErrHabitNameTooLong = errors.New("habit name too long")

	// ErrHabitNotFound indicates the habit does not exist or belongs to
	// another user.
	ErrHabitNotFound = errors.New("habit not found")

	// ErrInvalidDate is returned for dates not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("date must be YYYY-MM-DD")
)

// Chat errors.
var (
	// ErrEmptyPrompt is returned when a chat message is blank.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrTooLong is returned when a chat message exceeds the rune limit.
	ErrTooLong = errors.New("prompt too long")

	// ErrMessageNotFound indicates that the requested message does not exist
	// or is not accessible to the current user.
	ErrMessageNotFound = errors.New("message not found")
)
