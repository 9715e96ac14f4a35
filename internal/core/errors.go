// Package core defines the fundamental types and errors for PharmaPet.
package core

import "errors"

// Core errors that can occur across the system
var (
	// Storage errors
	ErrRecordNotFound  = errors.New("record not found")
	ErrMigrationFailed = errors.New("migration failed")

	// Classification errors
	ErrLLMUnavailable     = errors.New("LLM service unavailable")
	ErrInvalidStatus      = errors.New("status outside NORMAL/WARNING/CRITICAL")
	ErrClassifierResponse = errors.New("unparseable classifier response")

	// Delivery errors
	ErrMailNotConfigured = errors.New("mail sender not configured")
	ErrNoMailHandler     = errors.New("no application available to compose mail")
)
