package services

import "errors"

// Domain errors surfaced to the HTTP layer. Anything else coming out of
// a service is a persistence failure and maps to a generic 500.
var (
	ErrTokenNotFound      = errors.New("qr token not found")
	ErrTokenExpired       = errors.New("qr token expired")
	ErrTableNotFound      = errors.New("table not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrOrderNotReady      = errors.New("order is not ready for settlement")
	ErrAlreadySettled     = errors.New("order has already been settled")
	ErrInsufficientTender = errors.New("cash received is less than the payable total")
	ErrInvalidPayment     = errors.New("invalid payment request")
)
