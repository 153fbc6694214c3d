package models

import "errors"

var (
	ErrStoreCorrupt   = errors.New("reservations file is corrupt")
	ErrDuplicateGuest = errors.New("a reservation for this guest already exists")
	ErrNotFound       = errors.New("no reservation found for this guest")
	ErrCabinConflict  = errors.New("the cabin is already booked for these dates")
)

var (
	ErrValidation      = errors.New("validation error")
	ErrRenderInvariant = errors.New("reservations violate calendar invariants")
	ErrTimeout         = errors.New("operation timed out waiting for the store lock")
)
