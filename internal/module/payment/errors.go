package payment

import "errors"

// Module errors.
var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidTransition   = errors.New("invalid transaction status transition")
	ErrInvalidAction       = errors.New("invalid transaction action")
	ErrCompleteUnsupported = errors.New("gateway does not support completing this transaction")
	ErrCompletionInFlight  = errors.New("transaction completion already in progress")
)
