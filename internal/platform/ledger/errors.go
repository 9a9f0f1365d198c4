package ledger

import "errors"

// Error taxonomy. Callers match with errors.Is; every failure carrying one of
// these leaves registry state unchanged.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrCorruptBundle   = errors.New("corrupt bundle")
	ErrAlreadyApproved = errors.New("already approved")
)
