package campaign

import "errors"

// Sentinel errors for the campaign service layer.
var (
	ErrNotFound        = errors.New("campaign not found")
	ErrForbidden       = errors.New("campaign belongs to another user")
	ErrValidation      = errors.New("invalid campaign input")
	ErrSegmentNotFound = errors.New("campaign segment not found")
	ErrAlreadySent     = errors.New("campaign has already been sent or is sending")
)
