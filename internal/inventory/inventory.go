package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/iliyamo/raffle-ticketing/internal/clock"
	"github.com/iliyamo/raffle-ticketing/internal/model"
)

// Store is the durable side of the inventory, keyed by raffle ID.
// LoadTickets returns an empty slice when the raffle has no tickets.
// PutTickets upserts the given tickets by number.
type Store interface {
	LoadTickets(ctx context.Context, raffleID string) ([]model.Ticket, error)
	PutTickets(ctx context.Context, raffleID string, tickets []model.Ticket) error
	DeleteTickets(ctx context.Context, raffleID string) error
}

// Counts is the number of tickets in each status.
type Counts struct {
	Available int `json:"available"`
	Pending   int `json:"pending"`
	Sold      int `json:"sold"`
}

// Allocated is Pending + Sold.
func (c Counts) Allocated() int { return c.Pending + c.Sold }

// Total is the number of tickets in the raffle.
func (c Counts) Total() int { return c.Available + c.Pending + c.Sold }

// book holds the tickets of one raffle indexed by number-start.
type book struct {
	start   int
	tickets []model.Ticket
}

func (b *book) index(n int) (int, bool) {
	i := n - b.start
	if i < 0 || i >= len(b.tickets) {
		return 0, false
	}
	return i, true
}

// Inventory is the mutex-guarded ticket map for all raffles of the
// process.  Every mutation is validated and persisted while the lock is
// held, and memory is only updated after the store accepted the change.
type Inventory struct {
	mu    sync.Mutex
	books map[string]*book
	store Store
	clock clock.Clock
}

// Option customises an Inventory.
type Option func(*Inventory)

// WithClock overrides the clock used to stamp ticket updates.
func WithClock(c clock.Clock) Option {
	return func(inv *Inventory) {
		if c != nil {
			inv.clock = c
		}
	}
}

// New returns an Inventory backed by store.  A nil store keeps tickets
// in memory only.
func New(store Store, opts ...Option) *Inventory {
	inv := &Inventory{
		books: make(map[string]*book),
		store: store,
		clock: clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Initialize creates count Available tickets numbered startNumber through
// startNumber+count-1.
func (inv *Inventory) Initialize(ctx context.Context, raffleID string, startNumber, count int) ([]model.Ticket, error) {
	if count <= 0 {
		return nil, ErrInvalidSize
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if _, err := inv.bookLocked(ctx, raffleID); err == nil {
		return nil, ErrAlreadyInitialized
	} else if !errors.Is(err, ErrRaffleNotFound) {
		return nil, err
	}

	now := inv.clock.Now()
	tickets := make([]model.Ticket, count)
	for i := range tickets {
		tickets[i] = model.Ticket{
			RaffleID:  raffleID,
			Number:    startNumber + i,
			Status:    model.StatusAvailable,
			UpdatedAt: now,
		}
	}
	if inv.store != nil {
		if err := inv.store.PutTickets(ctx, raffleID, tickets); err != nil {
			return nil, fmt.Errorf("inventory: store tickets: %w", err)
		}
	}
	inv.books[raffleID] = &book{start: startNumber, tickets: tickets}
	return cloneTickets(tickets), nil
}

// Reserve moves every listed ticket from Available to Pending and attaches
// buyer.  The batch is all-or-nothing: if one number is out of range or
// already allocated, nothing changes and an *UnavailableError naming the
// offending numbers is returned.
func (inv *Inventory) Reserve(ctx context.Context, raffleID string, numbers []int, buyer model.Buyer) error {
	uniq := dedupe(numbers)
	if len(uniq) == 0 {
		return ErrNoNumbers
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()

	b, err := inv.bookLocked(ctx, raffleID)
	if err != nil {
		return err
	}
	var unavailable []int
	for _, n := range uniq {
		i, ok := b.index(n)
		if !ok || b.tickets[i].Status != model.StatusAvailable {
			unavailable = append(unavailable, n)
		}
	}
	if len(unavailable) > 0 {
		return &UnavailableError{Numbers: unavailable}
	}

	now := inv.clock.Now()
	if buyer.RegisteredAt.IsZero() {
		buyer.RegisteredAt = now
	}
	changed := make([]model.Ticket, 0, len(uniq))
	for _, n := range uniq {
		i, _ := b.index(n)
		t := b.tickets[i]
		bc := buyer
		t.Status = model.StatusPending
		t.Buyer = &bc
		t.UpdatedAt = now
		changed = append(changed, t)
	}
	return inv.commitLocked(ctx, raffleID, b, changed)
}

// Confirm moves a Pending ticket to Sold.
func (inv *Inventory) Confirm(ctx context.Context, raffleID string, number int) error {
	return inv.transition(ctx, raffleID, number, model.StatusPending, model.StatusSold)
}

// Reject returns a Pending ticket to Available and clears its buyer.
func (inv *Inventory) Reject(ctx context.Context, raffleID string, number int) error {
	return inv.transition(ctx, raffleID, number, model.StatusPending, model.StatusAvailable)
}

// Release forces any ticket back to Available and clears its buyer.  It is
// the administrative correction used when a registration is deleted.
func (inv *Inventory) Release(ctx context.Context, raffleID string, number int) error {
	return inv.transition(ctx, raffleID, number, "", model.StatusAvailable)
}

// transition applies from -> to on a single ticket.  An empty from
// accepts any current status.
func (inv *Inventory) transition(ctx context.Context, raffleID string, number int, from, to model.TicketStatus) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	b, err := inv.bookLocked(ctx, raffleID)
	if err != nil {
		return err
	}
	i, ok := b.index(number)
	if !ok {
		return ErrTicketNotFound
	}
	t := b.tickets[i]
	if from != "" && t.Status != from {
		return fmt.Errorf("%w: ticket %d is %s", ErrInvalidTransition, number, t.Status)
	}
	t.Status = to
	if to == model.StatusAvailable {
		t.Buyer = nil
	}
	t.UpdatedAt = inv.clock.Now()
	return inv.commitLocked(ctx, raffleID, b, []model.Ticket{t})
}

// commitLocked persists changed and then applies it to b.
func (inv *Inventory) commitLocked(ctx context.Context, raffleID string, b *book, changed []model.Ticket) error {
	if inv.store != nil {
		if err := inv.store.PutTickets(ctx, raffleID, changed); err != nil {
			return fmt.Errorf("inventory: store tickets: %w", err)
		}
	}
	for _, t := range changed {
		i, _ := b.index(t.Number)
		b.tickets[i] = t
	}
	return nil
}

// Ticket returns a copy of a single ticket.
func (inv *Inventory) Ticket(ctx context.Context, raffleID string, number int) (model.Ticket, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	b, err := inv.bookLocked(ctx, raffleID)
	if err != nil {
		return model.Ticket{}, err
	}
	i, ok := b.index(number)
	if !ok {
		return model.Ticket{}, ErrTicketNotFound
	}
	return cloneTicket(b.tickets[i]), nil
}

// Tickets returns all tickets of a raffle ordered by number.
func (inv *Inventory) Tickets(ctx context.Context, raffleID string) ([]model.Ticket, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	b, err := inv.bookLocked(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	return cloneTickets(b.tickets), nil
}

// TicketsByStatus returns the tickets currently in status, ordered by number.
func (inv *Inventory) TicketsByStatus(ctx context.Context, raffleID string, status model.TicketStatus) ([]model.Ticket, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	b, err := inv.bookLocked(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Ticket, 0)
	for _, t := range b.tickets {
		if t.Status == status {
			out = append(out, cloneTicket(t))
		}
	}
	return out, nil
}

// Counts tallies the tickets of a raffle by status.
func (inv *Inventory) Counts(ctx context.Context, raffleID string) (Counts, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	b, err := inv.bookLocked(ctx, raffleID)
	if err != nil {
		return Counts{}, err
	}
	var c Counts
	for _, t := range b.tickets {
		switch t.Status {
		case model.StatusAvailable:
			c.Available++
		case model.StatusPending:
			c.Pending++
		case model.StatusSold:
			c.Sold++
		}
	}
	return c, nil
}

// SoldCount is the number of Sold tickets.
func (inv *Inventory) SoldCount(ctx context.Context, raffleID string) (int, error) {
	c, err := inv.Counts(ctx, raffleID)
	return c.Sold, err
}

// PendingCount is the number of Pending tickets.
func (inv *Inventory) PendingCount(ctx context.Context, raffleID string) (int, error) {
	c, err := inv.Counts(ctx, raffleID)
	return c.Pending, err
}

// Drop discards a raffle's tickets from memory and from the store.
func (inv *Inventory) Drop(ctx context.Context, raffleID string) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if inv.store != nil {
		if err := inv.store.DeleteTickets(ctx, raffleID); err != nil {
			return fmt.Errorf("inventory: delete tickets: %w", err)
		}
	}
	delete(inv.books, raffleID)
	return nil
}

// bookLocked returns the cached book for raffleID, loading it from the
// store on first use.  The caller must hold inv.mu.
func (inv *Inventory) bookLocked(ctx context.Context, raffleID string) (*book, error) {
	if b, ok := inv.books[raffleID]; ok {
		return b, nil
	}
	if inv.store == nil {
		return nil, ErrRaffleNotFound
	}
	tickets, err := inv.store.LoadTickets(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("inventory: load tickets: %w", err)
	}
	if len(tickets) == 0 {
		return nil, ErrRaffleNotFound
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].Number < tickets[j].Number })
	for i := 1; i < len(tickets); i++ {
		if tickets[i].Number != tickets[i-1].Number+1 {
			return nil, fmt.Errorf("inventory: raffle %s has a gap after ticket %d", raffleID, tickets[i-1].Number)
		}
	}
	b := &book{start: tickets[0].Number, tickets: tickets}
	inv.books[raffleID] = b
	return b, nil
}

func dedupe(numbers []int) []int {
	seen := make(map[int]struct{}, len(numbers))
	out := make([]int, 0, len(numbers))
	for _, n := range numbers {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// cloneTickets copies in, including each buyer, so callers never share
// state with the book.
func cloneTickets(in []model.Ticket) []model.Ticket {
	out := make([]model.Ticket, len(in))
	for i, t := range in {
		out[i] = cloneTicket(t)
	}
	return out
}

func cloneTicket(t model.Ticket) model.Ticket {
	if t.Buyer != nil {
		b := *t.Buyer
		t.Buyer = &b
	}
	return t
}
