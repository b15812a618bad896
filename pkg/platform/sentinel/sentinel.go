package sentinel

import "errors"

// Sentinel errors for storage facts. Flow and account stores return these
// (optionally wrapped) and services translate them into domain errors.
//
//   - ErrNotFound: no record under the key
//   - ErrConflict: a unique key is already taken
//   - ErrExpired: the record outlived its TTL
//   - ErrInvalidState: the record is in the wrong state for the operation
//   - ErrUnavailable: the backing store cannot be reached
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
