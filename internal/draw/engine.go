// Package draw decides when a raffle's draw fires, picks the winning
// number and matches it against the inventory.  Nothing in this package
// mutates tickets; persisting the outcome is the caller's job.
package draw

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/iliyamo/raffle-ticketing/internal/clock"
	"github.com/iliyamo/raffle-ticketing/internal/inventory"
	"github.com/iliyamo/raffle-ticketing/internal/model"
)

var (
	// ErrAlreadyDrawn guards against a second draw in the same cycle, e.g.
	// from two timers firing together.
	ErrAlreadyDrawn = errors.New("raffle already drawn")

	// ErrInvalidThreshold is returned by RevokeDraw for a threshold outside 1..100.
	ErrInvalidThreshold = errors.New("sales threshold must be between 1 and 100")
)

// Decision is the outcome of Evaluate.
type Decision int

const (
	NotYet Decision = iota
	Fire
)

func (d Decision) String() string {
	if d == Fire {
		return "fire"
	}
	return "not_yet"
}

// Counter exposes the allocation counts of a raffle.  *inventory.Inventory
// satisfies it.
type Counter interface {
	Counts(ctx context.Context, raffleID string) (inventory.Counts, error)
}

// TicketLookup finds a single ticket.  *inventory.Inventory satisfies it.
type TicketLookup interface {
	Ticket(ctx context.Context, raffleID string, number int) (model.Ticket, error)
}

// RandomSource returns a uniform integer in [0, n).
type RandomSource interface {
	Intn(n int) (int, error)
}

type cryptoSource struct{}

// CryptoSource returns a RandomSource backed by crypto/rand, so the
// winning number cannot be predicted from earlier draws.
func CryptoSource() RandomSource { return cryptoSource{} }

func (cryptoSource) Intn(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("draw: invalid range %d", n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// Engine evaluates trigger conditions and performs draws.
type Engine struct {
	rand  RandomSource
	clock clock.Clock
}

// Option customises an Engine.
type Option func(*Engine)

// WithRandom replaces the random source.  Tests use it to pin the winning number.
func WithRandom(src RandomSource) Option {
	return func(e *Engine) {
		if src != nil {
			e.rand = src
		}
	}
}

// WithClock overrides the clock used to stamp draw results.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// NewEngine returns an Engine using crypto/rand and the system clock.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{rand: CryptoSource(), clock: clock.NewSystem()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate reports whether the raffle's draw condition holds at now.  It
// has no side effects.  A raffle that is inactive or already drawn never
// fires.
func (e *Engine) Evaluate(ctx context.Context, r model.Raffle, counter Counter, now time.Time) (Decision, error) {
	if !r.IsActive || r.Drawn() {
		return NotYet, nil
	}
	if r.TriggerMode.UsesDate() && r.CloseDate != nil && !now.Before(*r.CloseDate) {
		return Fire, nil
	}
	if r.TriggerMode.UsesSales() {
		c, err := counter.Counts(ctx, r.ID)
		if err != nil {
			return NotYet, fmt.Errorf("draw: count tickets: %w", err)
		}
		if c.Allocated() >= r.SalesTarget() {
			return Fire, nil
		}
	}
	return NotYet, nil
}

// Draw picks a winning number uniformly from the raffle's whole range.
// Whether that number was sold does not matter here; an unsold winner is
// a normal outcome.
func (e *Engine) Draw(r model.Raffle) (model.DrawResult, error) {
	if r.Drawn() {
		return model.DrawResult{}, ErrAlreadyDrawn
	}
	if r.TicketCount <= 0 {
		return model.DrawResult{}, inventory.ErrInvalidSize
	}
	off, err := e.rand.Intn(r.TicketCount)
	if err != nil {
		return model.DrawResult{}, fmt.Errorf("draw: random source: %w", err)
	}
	return model.DrawResult{
		RaffleID:      r.ID,
		WinningNumber: r.StartNumber + off,
		DrawnAt:       e.clock.Now(),
	}, nil
}

// Reconcile returns the buyer of the winning ticket, or nil when that
// ticket is not Sold.  A Pending ticket does not win: payment must be
// confirmed before the draw.
func (e *Engine) Reconcile(ctx context.Context, res model.DrawResult, lookup TicketLookup) (*model.WinnerInfo, error) {
	t, err := lookup.Ticket(ctx, res.RaffleID, res.WinningNumber)
	if err != nil {
		return nil, fmt.Errorf("draw: lookup ticket %d: %w", res.WinningNumber, err)
	}
	if t.Status != model.StatusSold || t.Buyer == nil {
		return nil, nil
	}
	return &model.WinnerInfo{
		Number:           t.Number,
		Name:             t.Buyer.Name,
		Contact:          t.Buyer.Contact,
		PaymentMethod:    t.Buyer.PaymentMethod,
		PaymentReference: t.Buyer.PaymentReference,
	}, nil
}

// Reset carries the optional trigger changes applied by RevokeDraw.
type Reset struct {
	CloseDate      *time.Time
	SalesThreshold *int
	Reactivate     bool
}

// RevokeDraw clears the winning number and opens a new cycle.  The reset
// lets the caller move the close date or threshold so Evaluate does not
// fire again immediately.
func RevokeDraw(r *model.Raffle, reset Reset) error {
	if reset.SalesThreshold != nil {
		if *reset.SalesThreshold < 1 || *reset.SalesThreshold > 100 {
			return ErrInvalidThreshold
		}
		r.SalesThreshold = *reset.SalesThreshold
	}
	if reset.CloseDate != nil {
		d := reset.CloseDate.UTC()
		r.CloseDate = &d
	}
	if reset.Reactivate {
		r.IsActive = true
	}
	r.WinningNumber = nil
	r.Winner = nil
	r.DrawnAt = nil
	r.MilestoneNotified = false
	return nil
}
