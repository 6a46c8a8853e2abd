// Package model defines core types shared across the lotgo packages.
//
// # Status Types
//
//   - SpotStatus: closed set of externally visible spot states
//   - Role: user role with a derived concurrent-booking quota
//
// # Data Types
//
//   - BookingRequest: a queued booking intent with its result future
//   - BookingDetail: display metadata kept by the identity ledger
//   - Future: single-resolution asynchronous boolean result
package model
