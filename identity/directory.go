// Package identity tracks registered users, their role-derived booking
// quotas and the booking ledger.
//
// The ledger is the caller-facing source of truth for "who holds what" and
// is kept consistent with each spot's committed owner by the engine: it is
// written on successful commit and cleared on cancellation or expiry
// acknowledgment.
package identity

import (
	"sync"

	"github.com/hupe1980/lotgo/model"
)

// Profile describes a registered user. Immutable after registration.
type Profile struct {
	ID   string
	Role model.Role
}

// MaxBookings returns the role-derived concurrent-booking quota.
func (p Profile) MaxBookings() int {
	return p.Role.MaxBookings()
}

// Directory maps identities to profiles and tracks held spots.
type Directory struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	bookings map[string]map[string]model.BookingDetail // userID -> spotID -> detail
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		profiles: make(map[string]Profile),
		bookings: make(map[string]map[string]model.BookingDetail),
	}
}

// Register adds a user. Re-registering an existing ID overwrites the role
// but keeps the ledger.
func (d *Directory) Register(id string, role model.Role) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.profiles[id] = Profile{ID: id, Role: role}
	if _, ok := d.bookings[id]; !ok {
		d.bookings[id] = make(map[string]model.BookingDetail)
	}
}

// Profile returns the profile for id.
func (d *Directory) Profile(id string) (Profile, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.profiles[id]
	return p, ok
}

// HasReachedLimit reports whether id holds as many spots as its quota
// allows. Unknown identities have no quota and are reported as limited.
func (d *Directory) HasReachedLimit(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.profiles[id]
	if !ok {
		return true
	}
	return len(d.bookings[id]) >= p.MaxBookings()
}

// MarkBooked records a successful commit in the ledger.
func (d *Directory) MarkBooked(spotID, userID string, detail model.BookingDetail) {
	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.bookings[userID]
	if !ok {
		set = make(map[string]model.BookingDetail)
		d.bookings[userID] = set
	}
	set[spotID] = detail
}

// MarkUnbooked drops a spot from the ledger after cancellation or expiry.
func (d *Directory) MarkUnbooked(spotID, userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if set, ok := d.bookings[userID]; ok {
		delete(set, spotID)
	}
}

// Bookings returns a copy of the ledger entries for userID.
func (d *Directory) Bookings(userID string) map[string]model.BookingDetail {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]model.BookingDetail, len(d.bookings[userID]))
	for spotID, detail := range d.bookings[userID] {
		out[spotID] = detail
	}
	return out
}

// IsSpotBooked reports whether any identity holds spotID in the ledger.
func (d *Directory) IsSpotBooked(spotID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, set := range d.bookings {
		if _, ok := set[spotID]; ok {
			return true
		}
	}
	return false
}

// OwnerOf returns the identity holding spotID, or "" if none.
func (d *Directory) OwnerOf(spotID string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for userID, set := range d.bookings {
		if _, ok := set[spotID]; ok {
			return userID
		}
	}
	return ""
}

// UserIDs returns all registered identities.
func (d *Directory) UserIDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, 0, len(d.profiles))
	for id := range d.profiles {
		out = append(out, id)
	}
	return out
}
