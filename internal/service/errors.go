package service

import "errors"

// Domain errors. Concrete failures wrap one of these with fmt.Errorf("%w: ...").
var (
	ErrValidation       = errors.New("validation error")
	ErrConflict         = errors.New("conflict")
	ErrNotFound         = errors.New("not found")
	ErrInvalidCode      = errors.New("invalid confirmation code")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnauthenticated  = errors.New("authentication required")
)
