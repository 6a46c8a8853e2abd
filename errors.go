package lotgo

import "errors"

var (
	// ErrEngineClosed is returned for operations after Close.
	ErrEngineClosed = errors.New("engine closed")

	// ErrUnknownSpot is returned when a spot ID is not in the inventory.
	ErrUnknownSpot = errors.New("unknown spot")

	// ErrUnknownUser is returned when an identity was never registered.
	ErrUnknownUser = errors.New("unknown user")

	// ErrQuotaExceeded is returned when an identity is at its role quota.
	ErrQuotaExceeded = errors.New("booking quota exceeded")

	// ErrEmptyLayout is returned when constructing an engine with no spots.
	ErrEmptyLayout = errors.New("layout has no spots")
)
