// Package service orchestrates the ticket inventory, the draw engine, the
// raffle store and the event publisher.  Every raffle-level write runs
// under one service lock, so a draw can never fire twice for the same
// cycle even when the scheduler and an HTTP request race.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/raffle-ticketing/internal/clock"
	"github.com/iliyamo/raffle-ticketing/internal/draw"
	"github.com/iliyamo/raffle-ticketing/internal/inventory"
	"github.com/iliyamo/raffle-ticketing/internal/model"
	"github.com/iliyamo/raffle-ticketing/internal/queue"
	"github.com/iliyamo/raffle-ticketing/internal/repository"
)

const defaultPrizePercent = 60

var (
	ErrRaffleNotFound = errors.New("raffle not found")
	ErrRaffleInactive = errors.New("raffle is not active")
	ErrInvalidInput   = errors.New("invalid input")
)

// RaffleStore persists raffle definitions.  GetRaffle and DeleteRaffle
// return repository.ErrNotFound for unknown IDs.
type RaffleStore interface {
	GetRaffle(ctx context.Context, id string) (model.Raffle, error)
	SaveRaffle(ctx context.Context, r model.Raffle) error
	ListRaffles(ctx context.Context) ([]model.Raffle, error)
	DeleteRaffle(ctx context.Context, id string) error
}

// Publisher delivers domain events.  Publishing is best effort: a failure
// is logged and never undoes the state change that produced the event.
type Publisher interface {
	Publish(ctx context.Context, queue string, event any) error
}

// RaffleService is the entry point for every raffle operation.
type RaffleService struct {
	mu      sync.RWMutex
	raffles RaffleStore
	inv     *inventory.Inventory
	engine  *draw.Engine
	events  Publisher
	clock   clock.Clock
}

// Option customises a RaffleService.
type Option func(*RaffleService)

// WithClock overrides the clock used for timestamps and trigger checks.
func WithClock(c clock.Clock) Option {
	return func(s *RaffleService) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithPublisher sets the event publisher.  The default discards events.
func WithPublisher(p Publisher) Option {
	return func(s *RaffleService) {
		if p != nil {
			s.events = p
		}
	}
}

// NewRaffleService wires the service.  inv and engine must not be nil.
func NewRaffleService(raffles RaffleStore, inv *inventory.Inventory, engine *draw.Engine, opts ...Option) *RaffleService {
	if raffles == nil || inv == nil || engine == nil {
		panic("nil dependency passed to NewRaffleService")
	}
	s := &RaffleService{
		raffles: raffles,
		inv:     inv,
		engine:  engine,
		events:  queue.NopPublisher{},
		clock:   clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRaffleInput carries the administrator's raffle definition.  Zero
// SalesThreshold means 100 percent; nil PrizePercent means 60.
type CreateRaffleInput struct {
	Title           string
	Description     string
	Terms           string
	StartNumber     int
	TicketCount     int
	TicketPrice     decimal.Decimal
	CloseDate       *time.Time
	TriggerMode     model.TriggerMode
	SalesThreshold  int
	NotifyThreshold int
	PrizePercent    *int
	ManagedBy       string
}

func (in *CreateRaffleInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return fmt.Errorf("%w: title required", ErrInvalidInput)
	}
	if in.TicketCount <= 0 {
		return inventory.ErrInvalidSize
	}
	if in.TicketPrice.IsNegative() {
		return fmt.Errorf("%w: ticket price must not be negative", ErrInvalidInput)
	}
	if !in.TriggerMode.Valid() {
		return fmt.Errorf("%w: unknown trigger mode %q", ErrInvalidInput, in.TriggerMode)
	}
	if in.TriggerMode.UsesDate() && in.CloseDate == nil {
		return fmt.Errorf("%w: %s trigger requires a close date", ErrInvalidInput, in.TriggerMode)
	}
	if in.SalesThreshold == 0 {
		in.SalesThreshold = 100
	}
	if in.SalesThreshold < 1 || in.SalesThreshold > 100 {
		return fmt.Errorf("%w: %v", ErrInvalidInput, draw.ErrInvalidThreshold)
	}
	if in.NotifyThreshold < 0 || in.NotifyThreshold > 100 {
		return fmt.Errorf("%w: notify threshold must be between 0 and 100", ErrInvalidInput)
	}
	if in.PrizePercent != nil && (*in.PrizePercent < 0 || *in.PrizePercent > 100) {
		return fmt.Errorf("%w: prize percent must be between 0 and 100", ErrInvalidInput)
	}
	return nil
}

// CreateRaffle validates the definition, stores it and creates its
// tickets, all Available.
func (s *RaffleService) CreateRaffle(ctx context.Context, in CreateRaffleInput) (model.Raffle, error) {
	if err := in.validate(); err != nil {
		return model.Raffle{}, err
	}
	now := s.clock.Now()
	prize := defaultPrizePercent
	if in.PrizePercent != nil {
		prize = *in.PrizePercent
	}
	r := model.Raffle{
		ID:              uuid.NewString(),
		Title:           in.Title,
		Description:     in.Description,
		Terms:           in.Terms,
		StartNumber:     in.StartNumber,
		TicketCount:     in.TicketCount,
		TicketPrice:     in.TicketPrice,
		TriggerMode:     in.TriggerMode,
		SalesThreshold:  in.SalesThreshold,
		NotifyThreshold: in.NotifyThreshold,
		PrizePercent:    prize,
		IsActive:        true,
		ManagedBy:       in.ManagedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.CloseDate != nil {
		d := in.CloseDate.UTC()
		r.CloseDate = &d
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.raffles.SaveRaffle(ctx, r); err != nil {
		return model.Raffle{}, fmt.Errorf("save raffle: %w", err)
	}
	if _, err := s.inv.Initialize(ctx, r.ID, r.StartNumber, r.TicketCount); err != nil {
		if derr := s.raffles.DeleteRaffle(ctx, r.ID); derr != nil {
			logger.Errorf("raffle %s: rollback after failed initialize: %v", r.ID, derr)
		}
		return model.Raffle{}, fmt.Errorf("initialize tickets: %w", err)
	}
	logger.Infof("raffle %s created: %q %d tickets from %d, trigger=%s", r.ID, r.Title, r.TicketCount, r.StartNumber, r.TriggerMode)
	return r, nil
}

// PurchaseInput is a buyer's registration for one or more numbers.
type PurchaseInput struct {
	RaffleID string
	Numbers  []int
	Buyer    model.Buyer
}

func (in *PurchaseInput) validate() error {
	in.Buyer.Name = strings.TrimSpace(in.Buyer.Name)
	in.Buyer.Contact = strings.TrimSpace(in.Buyer.Contact)
	if in.Buyer.Name == "" || in.Buyer.Contact == "" {
		return fmt.Errorf("%w: buyer name and contact required", ErrInvalidInput)
	}
	if in.Buyer.PaymentMethod == "" {
		in.Buyer.PaymentMethod = model.PaymentOther
	}
	if !in.Buyer.PaymentMethod.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, in.Buyer.PaymentMethod)
	}
	if len(in.Numbers) == 0 {
		return inventory.ErrNoNumbers
	}
	return nil
}

// RegisterPurchase reserves the requested numbers as Pending for the
// buyer, all or nothing, and returns them sorted.  The draw condition is
// re-evaluated afterwards; a draw failure at that point is logged, not
// returned, because the purchase itself succeeded.
func (s *RaffleService) RegisterPurchase(ctx context.Context, in PurchaseInput) ([]int, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var out outbox
	defer s.flush(ctx, &out)
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.getLocked(ctx, in.RaffleID)
	if err != nil {
		return nil, err
	}
	if r.Drawn() {
		return nil, draw.ErrAlreadyDrawn
	}
	if !r.IsActive {
		return nil, ErrRaffleInactive
	}
	if err := s.inv.Reserve(ctx, r.ID, in.Numbers, in.Buyer); err != nil {
		return nil, err
	}
	s.afterMutationLocked(ctx, &r, &out)
	return uniqueSorted(in.Numbers), nil
}

// ConfirmPayment moves a Pending ticket to Sold.
func (s *RaffleService) ConfirmPayment(ctx context.Context, raffleID string, number int, actor string) error {
	return s.decidePayment(ctx, raffleID, number, actor, true)
}

// RejectPayment frees a Pending ticket and forgets its buyer.
func (s *RaffleService) RejectPayment(ctx context.Context, raffleID string, number int, actor string) error {
	return s.decidePayment(ctx, raffleID, number, actor, false)
}

func (s *RaffleService) decidePayment(ctx context.Context, raffleID string, number int, actor string, confirm bool) error {
	var out outbox
	defer s.flush(ctx, &out)
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.getLocked(ctx, raffleID)
	if err != nil {
		return err
	}
	before, err := s.inv.Ticket(ctx, r.ID, number)
	if err != nil {
		return err
	}

	q := queue.PaymentConfirmedQueue
	if confirm {
		err = s.inv.Confirm(ctx, r.ID, number)
	} else {
		q = queue.PaymentRejectedQueue
		err = s.inv.Reject(ctx, r.ID, number)
	}
	if err != nil {
		return err
	}

	ev := queue.PaymentEvent{
		RaffleID:  r.ID,
		Number:    number,
		Label:     model.FormatNumber(number, r.LabelWidth()),
		DecidedBy: actor,
		DecidedAt: s.clock.Now().Format(time.RFC3339),
	}
	if before.Buyer != nil {
		ev.BuyerName = before.Buyer.Name
		ev.PaymentMethod = string(before.Buyer.PaymentMethod)
		ev.PaymentReference = before.Buyer.PaymentReference
	}
	out.add(q, ev)
	s.afterMutationLocked(ctx, &r, &out)
	return nil
}

// ReleaseTicket returns a ticket in any status to Available.
func (s *RaffleService) ReleaseTicket(ctx context.Context, raffleID string, number int) error {
	var out outbox
	defer s.flush(ctx, &out)
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.getLocked(ctx, raffleID)
	if err != nil {
		return err
	}
	if err := s.inv.Release(ctx, r.ID, number); err != nil {
		return err
	}
	logger.Infof("raffle %s: ticket %d released", r.ID, number)
	s.afterMutationLocked(ctx, &r, &out)
	return nil
}

// CheckDraw evaluates the raffle's trigger and draws when it holds.  It
// returns nil without error when the draw is not due.
func (s *RaffleService) CheckDraw(ctx context.Context, raffleID string) (*model.DrawResult, error) {
	var out outbox
	defer s.flush(ctx, &out)
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.getLocked(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	return s.checkDrawLocked(ctx, &r, &out)
}

// DrawNow draws immediately regardless of the trigger.
func (s *RaffleService) DrawNow(ctx context.Context, raffleID string) (model.DrawResult, error) {
	var out outbox
	defer s.flush(ctx, &out)
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.getLocked(ctx, raffleID)
	if err != nil {
		return model.DrawResult{}, err
	}
	return s.fireLocked(ctx, &r, true, &out)
}

// Winner reports the outcome of the current draw cycle.
func (s *RaffleService) Winner(ctx context.Context, raffleID string) (model.WinnerStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := s.getLocked(ctx, raffleID)
	if err != nil {
		return model.WinnerStatus{}, err
	}
	if !r.Drawn() {
		return model.WinnerStatus{State: model.WinnerNotDrawn}, nil
	}
	n := *r.WinningNumber
	st := model.WinnerStatus{
		State:  model.WinnerUnsold,
		Number: &n,
		Label:  model.FormatNumber(n, r.LabelWidth()),
	}
	if r.Winner != nil {
		w := *r.Winner
		st.State = model.WinnerFound
		st.Winner = &w
	}
	return st, nil
}

// RevokeDraw clears the current result and applies reset.  If the trigger
// still holds afterwards the next check draws again.
func (s *RaffleService) RevokeDraw(ctx context.Context, raffleID string, reset draw.Reset) (model.Raffle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.getLocked(ctx, raffleID)
	if err != nil {
		return model.Raffle{}, err
	}
	prev := r.WinningNumber
	if err := draw.RevokeDraw(&r, reset); err != nil {
		return model.Raffle{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	r.UpdatedAt = s.clock.Now()
	if err := s.raffles.SaveRaffle(ctx, r); err != nil {
		return model.Raffle{}, fmt.Errorf("save raffle: %w", err)
	}
	if prev != nil {
		logger.Infof("raffle %s: draw of number %d revoked", r.ID, *prev)
	}
	return r, nil
}

// SetActive opens or closes a raffle for purchases and trigger checks.
func (s *RaffleService) SetActive(ctx context.Context, raffleID string, active bool) (model.Raffle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.getLocked(ctx, raffleID)
	if err != nil {
		return model.Raffle{}, err
	}
	if r.IsActive == active {
		return r, nil
	}
	r.IsActive = active
	r.UpdatedAt = s.clock.Now()
	if err := s.raffles.SaveRaffle(ctx, r); err != nil {
		return model.Raffle{}, fmt.Errorf("save raffle: %w", err)
	}
	return r, nil
}

// DeleteRaffle removes the raffle and all of its tickets.
func (s *RaffleService) DeleteRaffle(ctx context.Context, raffleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getLocked(ctx, raffleID); err != nil {
		return err
	}
	// Tickets go first: a failure after this point leaves a raffle without
	// tickets, which a retried delete cleans up, never orphaned tickets.
	if err := s.inv.Drop(ctx, raffleID); err != nil {
		return fmt.Errorf("drop tickets: %w", err)
	}
	if err := s.raffles.DeleteRaffle(ctx, raffleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRaffleNotFound, raffleID)
		}
		return fmt.Errorf("delete raffle: %w", err)
	}
	logger.Infof("raffle %s deleted", raffleID)
	return nil
}

// RaffleDetail is a raffle with its live ticket counts.
type RaffleDetail struct {
	model.Raffle
	Counts      inventory.Counts `json:"counts"`
	SalesTarget int              `json:"sales_target"`
}

// PublicRaffleDetail is RaffleDetail without buyer or bookkeeping data.
type PublicRaffleDetail struct {
	model.PublicRaffle
	Counts      inventory.Counts `json:"counts"`
	SalesTarget int              `json:"sales_target"`
}

// Public converts d for unauthenticated callers.
func (d RaffleDetail) Public() PublicRaffleDetail {
	return PublicRaffleDetail{PublicRaffle: d.Raffle.Public(), Counts: d.Counts, SalesTarget: d.SalesTarget}
}

// Get returns a raffle with its counts.
func (s *RaffleService) Get(ctx context.Context, raffleID string) (RaffleDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := s.getLocked(ctx, raffleID)
	if err != nil {
		return RaffleDetail{}, err
	}
	c, err := s.inv.Counts(ctx, r.ID)
	if err != nil {
		return RaffleDetail{}, err
	}
	return RaffleDetail{Raffle: r, Counts: c, SalesTarget: r.SalesTarget()}, nil
}

// List returns raffles newest first, optionally only the active ones.
func (s *RaffleService) List(ctx context.Context, activeOnly bool) ([]model.Raffle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.raffles.ListRaffles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list raffles: %w", err)
	}
	if !activeOnly {
		return all, nil
	}
	out := all[:0]
	for _, r := range all {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

// GridCell is the public view of a ticket: buyer details are never exposed.
type GridCell struct {
	Number int                `json:"number"`
	Label  string             `json:"label"`
	Status model.TicketStatus `json:"status"`
}

// Grid returns every ticket of the raffle in number order.
func (s *RaffleService) Grid(ctx context.Context, raffleID string) ([]GridCell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := s.getLocked(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	tickets, err := s.inv.Tickets(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	width := r.LabelWidth()
	cells := make([]GridCell, len(tickets))
	for i, t := range tickets {
		cells[i] = GridCell{Number: t.Number, Label: t.Label(width), Status: t.Status}
	}
	return cells, nil
}

// PendingPayments lists the tickets awaiting payment validation.
func (s *RaffleService) PendingPayments(ctx context.Context, raffleID string) ([]model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.getLocked(ctx, raffleID); err != nil {
		return nil, err
	}
	return s.inv.TicketsByStatus(ctx, raffleID, model.StatusPending)
}

// Finance summarises ticket counts, revenue and prize payout.
func (s *RaffleService) Finance(ctx context.Context, raffleID string) (model.FinanceSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := s.getLocked(ctx, raffleID)
	if err != nil {
		return model.FinanceSummary{}, err
	}
	c, err := s.inv.Counts(ctx, r.ID)
	if err != nil {
		return model.FinanceSummary{}, err
	}
	collected := draw.Collected(c.Sold, r.TicketPrice)
	return model.FinanceSummary{
		RaffleID:     r.ID,
		Available:    c.Available,
		Pending:      c.Pending,
		Sold:         c.Sold,
		TicketPrice:  r.TicketPrice,
		Collected:    collected,
		PrizePercent: r.PrizePercent,
		PrizePayout:  draw.PrizePayout(collected, r.PrizePercent),
	}, nil
}

// ActiveRaffleIDs lists the raffles whose trigger still needs checking.
func (s *RaffleService) ActiveRaffleIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.raffles.ListRaffles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list raffles: %w", err)
	}
	ids := make([]string, 0, len(all))
	for _, r := range all {
		if r.IsActive && !r.Drawn() {
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}

// TicketRef names one ticket without its buyer.
type TicketRef struct {
	Number int    `json:"number"`
	Label  string `json:"label"`
}

// ContactTickets lists the Sold tickets one contact holds in a raffle.
type ContactTickets struct {
	RaffleID string      `json:"raffle_id"`
	Title    string      `json:"title"`
	Tickets  []TicketRef `json:"tickets"`
}

// TicketsByContact finds the validated tickets registered under contact
// in every raffle.  Contacts are compared on their digits only, so
// "+58 412-555 0000" matches "584125550000".  Pending tickets are left
// out until an administrator confirms them.
func (s *RaffleService) TicketsByContact(ctx context.Context, contact string) ([]ContactTickets, error) {
	want := contactDigits(contact)
	if want == "" {
		return nil, fmt.Errorf("%w: contact must contain digits", ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.raffles.ListRaffles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list raffles: %w", err)
	}
	out := make([]ContactTickets, 0)
	for _, r := range all {
		sold, err := s.inv.TicketsByStatus(ctx, r.ID, model.StatusSold)
		if errors.Is(err, inventory.ErrRaffleNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		width := r.LabelWidth()
		var refs []TicketRef
		for _, t := range sold {
			if t.Buyer != nil && contactDigits(t.Buyer.Contact) == want {
				refs = append(refs, TicketRef{Number: t.Number, Label: t.Label(width)})
			}
		}
		if len(refs) > 0 {
			out = append(out, ContactTickets{RaffleID: r.ID, Title: r.Title, Tickets: refs})
		}
	}
	return out, nil
}

func contactDigits(contact string) string {
	return strings.Map(func(c rune) rune {
		if c >= '0' && c <= '9' {
			return c
		}
		return -1
	}, contact)
}

func (s *RaffleService) getLocked(ctx context.Context, id string) (model.Raffle, error) {
	r, err := s.raffles.GetRaffle(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Raffle{}, fmt.Errorf("%w: %s", ErrRaffleNotFound, id)
		}
		return model.Raffle{}, fmt.Errorf("load raffle: %w", err)
	}
	return r, nil
}

// afterMutationLocked runs the side effects of a ticket change: the sales
// milestone and the draw trigger.  Errors are logged only.
func (s *RaffleService) afterMutationLocked(ctx context.Context, r *model.Raffle, out *outbox) {
	if err := s.milestoneLocked(ctx, r, out); err != nil {
		logger.Errorf("raffle %s: milestone check: %v", r.ID, err)
	}
	if _, err := s.checkDrawLocked(ctx, r, out); err != nil {
		logger.Errorf("raffle %s: draw check: %v", r.ID, err)
	}
}

func (s *RaffleService) milestoneLocked(ctx context.Context, r *model.Raffle, out *outbox) error {
	target := r.NotifyTarget()
	if target == 0 || r.MilestoneNotified || r.Drawn() {
		return nil
	}
	c, err := s.inv.Counts(ctx, r.ID)
	if err != nil {
		return err
	}
	if c.Allocated() < target {
		return nil
	}
	next := *r
	next.MilestoneNotified = true
	next.UpdatedAt = s.clock.Now()
	if err := s.raffles.SaveRaffle(ctx, next); err != nil {
		return fmt.Errorf("save raffle: %w", err)
	}
	*r = next
	logger.Infof("raffle %s: sales milestone reached (%d/%d)", r.ID, c.Allocated(), c.Total())
	out.add(queue.SalesMilestoneQueue, queue.SalesMilestoneEvent{
		RaffleID:  r.ID,
		Title:     r.Title,
		Allocated: c.Allocated(),
		Total:     c.Total(),
		Percent:   r.NotifyThreshold,
		ReachedAt: next.UpdatedAt.Format(time.RFC3339),
	})
	return nil
}

func (s *RaffleService) checkDrawLocked(ctx context.Context, r *model.Raffle, out *outbox) (*model.DrawResult, error) {
	d, err := s.engine.Evaluate(ctx, *r, s.inv, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if d != draw.Fire {
		return nil, nil
	}
	res, err := s.fireLocked(ctx, r, false, out)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// fireLocked draws, reconciles and persists the result.  r is only
// updated once the store accepted the new state.
func (s *RaffleService) fireLocked(ctx context.Context, r *model.Raffle, manual bool, out *outbox) (model.DrawResult, error) {
	res, err := s.engine.Draw(*r)
	if err != nil {
		return model.DrawResult{}, err
	}
	winner, err := s.engine.Reconcile(ctx, res, s.inv)
	if err != nil {
		return model.DrawResult{}, err
	}

	next := *r
	n := res.WinningNumber
	at := res.DrawnAt
	next.WinningNumber = &n
	next.Winner = winner
	next.DrawnAt = &at
	next.UpdatedAt = at
	if err := s.raffles.SaveRaffle(ctx, next); err != nil {
		return model.DrawResult{}, fmt.Errorf("save draw result: %w", err)
	}
	*r = next

	label := model.FormatNumber(n, r.LabelWidth())
	ev := queue.DrawCompletedEvent{
		RaffleID:      r.ID,
		Title:         r.Title,
		WinningNumber: n,
		Label:         label,
		Manual:        manual,
		DrawnAt:       at.Format(time.RFC3339),
	}
	if winner != nil {
		ev.Sold = true
		ev.WinnerName = winner.Name
		ev.WinnerContact = winner.Contact
		logger.Infof("raffle %s: drew %s, winner %q", r.ID, label, winner.Name)
	} else {
		logger.Infof("raffle %s: drew %s, number unsold", r.ID, label)
	}
	out.add(queue.DrawCompletedQueue, ev)
	return res, nil
}

// outbox collects the events produced while s.mu is held.  flush hands
// them to the publisher once the lock is released.
type outbox []outboundEvent

type outboundEvent struct {
	queue string
	body  any
}

func (o *outbox) add(q string, body any) { *o = append(*o, outboundEvent{queue: q, body: body}) }

// flush must be deferred before the lock is taken.
func (s *RaffleService) flush(ctx context.Context, out *outbox) {
	for _, ev := range *out {
		if err := s.events.Publish(ctx, ev.queue, ev.body); err != nil {
			logger.Warningf("publish %s: %v", ev.queue, err)
		}
	}
}

func uniqueSorted(numbers []int) []int {
	seen := make(map[int]bool, len(numbers))
	out := make([]int, 0, len(numbers))
	for _, n := range numbers {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}
