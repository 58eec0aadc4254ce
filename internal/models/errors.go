package models

import "errors"

// Domain errors. Business-rule failures are expected outcomes; handlers map
// them to HTTP statuses with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrForbidden           = errors.New("forbidden")
	ErrEscrowReleased      = errors.New("escrow already released")
	ErrInvalidAmount       = errors.New("invalid amount")
)
