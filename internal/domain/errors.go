package domain

import "errors"

var (
	// ErrMissingSetting is returned when a required configuration value is empty.
	ErrMissingSetting = errors.New("required setting is missing")
	// ErrInvalidBank indicates the question bank failed validation.
	ErrInvalidBank = errors.New("invalid question bank")
	// ErrInvalidTexts indicates a message template lost its placeholder.
	ErrInvalidTexts = errors.New("invalid message texts")
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrSessionNotFound is returned when a user has no quiz in progress.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrLockTimeout is returned when a per-user lock cannot be acquired in time.
	ErrLockTimeout = errors.New("user lock not acquired")
	// ErrUnknownChat indicates an outbound message has no transport for its chat id.
	ErrUnknownChat = errors.New("no transport for chat")
)
