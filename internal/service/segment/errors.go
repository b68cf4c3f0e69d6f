package segment

import "errors"

// Sentinel errors for the segment service layer.
var (
	ErrNotFound   = errors.New("segment not found")
	ErrForbidden  = errors.New("segment belongs to another user")
	ErrValidation = errors.New("invalid segment input")
)
