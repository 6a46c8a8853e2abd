package model

import (
	"fmt"
	"time"
)

// SystemUserID is the identity used by automated (sensor/generator) callers.
// System bookings skip the expiry warning and the acknowledgment phase.
const SystemUserID = "system"

// SpotStatus is the externally visible state of a spot.
//
// The status set is closed: observers switch on it and the engine never
// emits a value outside this enumeration.
type SpotStatus uint8

const (
	StatusAvailable SpotStatus = iota
	StatusSoftLocked
	StatusBooked
	StatusTimeExceeded
	StatusWrongParking
	StatusReserved
	StatusReservedOccupied
)

// String returns the wire representation of the status.
func (s SpotStatus) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusSoftLocked:
		return "soft_locked"
	case StatusBooked:
		return "booked"
	case StatusTimeExceeded:
		return "time_exceeded"
	case StatusWrongParking:
		return "wrong_parking"
	case StatusReserved:
		return "reserved"
	case StatusReservedOccupied:
		return "reserved_occupied"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Role classifies a registered user and determines the booking quota.
type Role uint8

const (
	RoleRegular Role = iota
	RoleVIP
	RoleCorporate
)

// MaxBookings returns the maximum number of concurrent bookings for the role.
func (r Role) MaxBookings() int {
	switch r {
	case RoleVIP:
		return 2
	case RoleCorporate:
		return 5
	default:
		return 1
	}
}

// String returns a human-readable role name.
func (r Role) String() string {
	switch r {
	case RoleVIP:
		return "vip"
	case RoleCorporate:
		return "corporate"
	default:
		return "regular"
	}
}

// ParseRole maps a role name (case-sensitive, lowercase) to a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "regular":
		return RoleRegular, nil
	case "vip":
		return RoleVIP, nil
	case "corporate":
		return RoleCorporate, nil
	default:
		return RoleRegular, fmt.Errorf("unknown role: %q", s)
	}
}

// BookingRequest is a queued booking intent.
//
// Priority requests are serviced before ordinary ones; ordering within a
// class is not guaranteed. Result is resolved exactly once.
type BookingRequest struct {
	SpotID   string
	Duration time.Duration
	Label    string
	Plate    string
	Priority bool
	UserID   string
	Result   *Future
}

// IsSystem reports whether the request originates from an automated caller.
func (r *BookingRequest) IsSystem() bool {
	return r.UserID == SystemUserID
}

// BookingDetail is display metadata for one booking, kept per user and spot.
type BookingDetail struct {
	Plate    string
	Duration string
}

// String formats the detail the way the ledger presents it to observers.
func (d BookingDetail) String() string {
	return fmt.Sprintf("Plate: %s, Duration: %s", d.Plate, d.Duration)
}
