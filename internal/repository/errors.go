// Package repository persists raffles and their tickets.  Every store
// keys its data by raffle ID, so the same service can run on memory,
// MySQL or Redis.  ErrNotFound lets higher layers tell a missing raffle
// from a storage failure; handlers translate it into an HTTP 404.
package repository

import "errors"

// ErrNotFound is returned when no raffle exists under the given ID.
var ErrNotFound = errors.New("not found")
