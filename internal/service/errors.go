package service

import "errors"

// Stable error kinds reported to the transport layer. Every recoverable
// failure of a brokerage operation maps to exactly one of these.
var (
	ErrSymbolNotFound     = errors.New("error symbol not found")
	ErrQuoteUnavailable   = errors.New("error quote provider unavailable")
	ErrInvalidQuantity    = errors.New("error quantity must be a positive integer")
	ErrInvalidAmount      = errors.New("error amount must be positive")
	ErrInsufficientFunds  = errors.New("error insufficient funds")
	ErrInsufficientShares = errors.New("error insufficient shares")
	ErrUsernameTaken      = errors.New("error username already taken")
	ErrInvalidCredentials = errors.New("error invalid username or password")
)
