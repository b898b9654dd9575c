// Package inventory owns the tickets of every raffle and the state machine
// that moves them between Available, Pending and Sold.  These sentinel
// values let the service and HTTP layers tell a stale view of the grid
// apart from a real failure.
package inventory

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidSize is returned when a raffle is initialised with no tickets.
	ErrInvalidSize = errors.New("ticket count must be positive")

	// ErrNumberUnavailable is returned when a requested ticket is not
	// Available.  Reserve returns it wrapped in *UnavailableError.
	ErrNumberUnavailable = errors.New("number no longer available")

	// ErrInvalidTransition is returned when a ticket is not in the status
	// an operation requires (e.g. confirming an Available ticket).
	ErrInvalidTransition = errors.New("invalid ticket status transition")

	// ErrTicketNotFound is returned for numbers outside the raffle's range.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrRaffleNotFound is returned when no tickets exist for a raffle.
	ErrRaffleNotFound = errors.New("raffle inventory not found")

	// ErrAlreadyInitialized guards against re-creating a raffle's tickets.
	ErrAlreadyInitialized = errors.New("raffle inventory already initialized")

	// ErrNoNumbers is returned when Reserve is called with an empty batch.
	ErrNoNumbers = errors.New("no ticket numbers requested")
)

// UnavailableError lists the numbers that made a reservation fail.
type UnavailableError struct {
	Numbers []int
}

func (e *UnavailableError) Error() string {
	parts := make([]string, len(e.Numbers))
	for i, n := range e.Numbers {
		parts[i] = fmt.Sprint(n)
	}
	return fmt.Sprintf("%s: [%s]", ErrNumberUnavailable, strings.Join(parts, ","))
}

func (e *UnavailableError) Unwrap() error { return ErrNumberUnavailable }
