package customer

import "errors"

// Sentinel errors for the customer service layer.
var (
	ErrNotFound       = errors.New("customer not found")
	ErrDuplicateEmail = errors.New("customer with this email already exists")
	ErrValidation     = errors.New("invalid customer input")
)
