package services

import "errors"

var (
	ErrMissingParameter     = errors.New("missing parameter")
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrInvalidAmount        = errors.New("amount must be > 0")
	ErrClientNotFound       = errors.New("client not found")
	ErrLimitExceeded        = errors.New("amount exceeds per-call limit")
	ErrDuplicateReservation = errors.New("shipment already has a reservation")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInvoiceNotFound      = errors.New("invoice not found")
)
