package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/raffle-ticketing/internal/clock"
	"github.com/iliyamo/raffle-ticketing/internal/model"
)

type fakeStore struct {
	mu      sync.Mutex
	tickets map[string]map[int]model.Ticket
	failPut error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tickets: make(map[string]map[int]model.Ticket)}
}

func (s *fakeStore) LoadTickets(_ context.Context, raffleID string) ([]model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Ticket, 0, len(s.tickets[raffleID]))
	for _, t := range s.tickets[raffleID] {
		out = append(out, t)
	}
	return out, nil
}

func (s *fakeStore) PutTickets(_ context.Context, raffleID string, tickets []model.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut != nil {
		return s.failPut
	}
	m, ok := s.tickets[raffleID]
	if !ok {
		m = make(map[int]model.Ticket)
		s.tickets[raffleID] = m
	}
	for _, t := range tickets {
		m[t.Number] = t
	}
	return nil
}

func (s *fakeStore) DeleteTickets(_ context.Context, raffleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tickets, raffleID)
	return nil
}

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestInventory(t *testing.T, start, count int) (*Inventory, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	inv := New(store, WithClock(clock.NewManual(testNow)))
	if _, err := inv.Initialize(context.Background(), "r1", start, count); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return inv, store
}

func buyer(name string) model.Buyer {
	return model.Buyer{Name: name, Contact: "04120000000", PaymentMethod: model.PaymentTransfer, PaymentReference: "ref-1"}
}

func assertStatus(t *testing.T, inv *Inventory, number int, want model.TicketStatus) {
	t.Helper()
	tk, err := inv.Ticket(context.Background(), "r1", number)
	if err != nil {
		t.Fatalf("ticket %d: %v", number, err)
	}
	if tk.Status != want {
		t.Fatalf("ticket %d: expected %s, got %s", number, want, tk.Status)
	}
	if want == model.StatusAvailable && tk.Buyer != nil {
		t.Fatalf("ticket %d: expected no buyer while available", number)
	}
	if want != model.StatusAvailable && tk.Buyer == nil {
		t.Fatalf("ticket %d: expected buyer while %s", number, want)
	}
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()

	t.Run("creates contiguous available tickets", func(t *testing.T) {
		inv, store := newTestInventory(t, 1000, 50)
		tickets, err := inv.Tickets(ctx, "r1")
		if err != nil {
			t.Fatalf("tickets: %v", err)
		}
		if len(tickets) != 50 {
			t.Fatalf("expected 50 tickets, got %d", len(tickets))
		}
		for i, tk := range tickets {
			if tk.Number != 1000+i || tk.Status != model.StatusAvailable {
				t.Fatalf("unexpected ticket at %d: %+v", i, tk)
			}
		}
		if len(store.tickets["r1"]) != 50 {
			t.Fatalf("expected tickets persisted, got %d", len(store.tickets["r1"]))
		}
	})

	t.Run("rejects non-positive sizes", func(t *testing.T) {
		inv := New(nil)
		for _, n := range []int{0, -3} {
			if _, err := inv.Initialize(ctx, "r2", 0, n); !errors.Is(err, ErrInvalidSize) {
				t.Fatalf("count %d: expected ErrInvalidSize, got %v", n, err)
			}
		}
	})

	t.Run("refuses to initialise twice", func(t *testing.T) {
		inv, _ := newTestInventory(t, 0, 10)
		if _, err := inv.Initialize(ctx, "r1", 0, 10); !errors.Is(err, ErrAlreadyInitialized) {
			t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
		}
	})
}

func TestReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("moves batch to pending", func(t *testing.T) {
		inv, _ := newTestInventory(t, 0, 100)
		if err := inv.Reserve(ctx, "r1", []int{5, 6, 6, 7}, buyer("Ana")); err != nil {
			t.Fatalf("reserve: %v", err)
		}
		for _, n := range []int{5, 6, 7} {
			assertStatus(t, inv, n, model.StatusPending)
		}
		tk, _ := inv.Ticket(ctx, "r1", 5)
		if !tk.Buyer.RegisteredAt.Equal(testNow) {
			t.Fatalf("expected registration stamped with clock, got %v", tk.Buyer.RegisteredAt)
		}
		pending, _ := inv.PendingCount(ctx, "r1")
		if pending != 3 {
			t.Fatalf("expected 3 pending, got %d", pending)
		}
	})

	t.Run("is all or nothing", func(t *testing.T) {
		inv, _ := newTestInventory(t, 0, 100)
		if err := inv.Reserve(ctx, "r1", []int{6}, buyer("Bea")); err != nil {
			t.Fatalf("reserve 6: %v", err)
		}
		if err := inv.Confirm(ctx, "r1", 6); err != nil {
			t.Fatalf("confirm 6: %v", err)
		}

		err := inv.Reserve(ctx, "r1", []int{5, 6, 7}, buyer("Ana"))
		if !errors.Is(err, ErrNumberUnavailable) {
			t.Fatalf("expected ErrNumberUnavailable, got %v", err)
		}
		var ue *UnavailableError
		if !errors.As(err, &ue) || len(ue.Numbers) != 1 || ue.Numbers[0] != 6 {
			t.Fatalf("expected unavailable [6], got %v", err)
		}
		assertStatus(t, inv, 5, model.StatusAvailable)
		assertStatus(t, inv, 7, model.StatusAvailable)
		tk, _ := inv.Ticket(ctx, "r1", 6)
		if tk.Status != model.StatusSold || tk.Buyer.Name != "Bea" {
			t.Fatalf("sold ticket changed: %+v", tk)
		}
	})

	t.Run("out of range numbers are unavailable", func(t *testing.T) {
		inv, _ := newTestInventory(t, 1, 100)
		err := inv.Reserve(ctx, "r1", []int{0, 50, 101}, buyer("Ana"))
		var ue *UnavailableError
		if !errors.As(err, &ue) || len(ue.Numbers) != 2 {
			t.Fatalf("expected two unavailable numbers, got %v", err)
		}
		assertStatus(t, inv, 50, model.StatusAvailable)
	})

	t.Run("empty batch", func(t *testing.T) {
		inv, _ := newTestInventory(t, 0, 10)
		if err := inv.Reserve(ctx, "r1", nil, buyer("Ana")); !errors.Is(err, ErrNoNumbers) {
			t.Fatalf("expected ErrNoNumbers, got %v", err)
		}
	})

	t.Run("unknown raffle", func(t *testing.T) {
		inv, _ := newTestInventory(t, 0, 10)
		if err := inv.Reserve(ctx, "nope", []int{1}, buyer("Ana")); !errors.Is(err, ErrRaffleNotFound) {
			t.Fatalf("expected ErrRaffleNotFound, got %v", err)
		}
	})

	t.Run("store failure leaves memory untouched", func(t *testing.T) {
		inv, store := newTestInventory(t, 0, 10)
		store.failPut = errors.New("disk full")
		if err := inv.Reserve(ctx, "r1", []int{1, 2}, buyer("Ana")); err == nil {
			t.Fatal("expected store error")
		}
		assertStatus(t, inv, 1, model.StatusAvailable)
		assertStatus(t, inv, 2, model.StatusAvailable)
	})

	t.Run("concurrent reservations of one number", func(t *testing.T) {
		inv, _ := newTestInventory(t, 0, 10)
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			success int
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := inv.Reserve(ctx, "r1", []int{3}, buyer("racer")); err == nil {
					mu.Lock()
					success++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		if success != 1 {
			t.Fatalf("expected exactly one winner of the race, got %d", success)
		}
	})
}

func TestTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("confirm and reject require pending", func(t *testing.T) {
		inv, _ := newTestInventory(t, 0, 10)
		if err := inv.Confirm(ctx, "r1", 1); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("confirm available: expected ErrInvalidTransition, got %v", err)
		}
		if err := inv.Reject(ctx, "r1", 1); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("reject available: expected ErrInvalidTransition, got %v", err)
		}
		_ = inv.Reserve(ctx, "r1", []int{1}, buyer("Ana"))
		if err := inv.Confirm(ctx, "r1", 1); err != nil {
			t.Fatalf("confirm pending: %v", err)
		}
		if err := inv.Confirm(ctx, "r1", 1); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("confirm sold: expected ErrInvalidTransition, got %v", err)
		}
		if err := inv.Reject(ctx, "r1", 1); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("reject sold: expected ErrInvalidTransition, got %v", err)
		}
		if err := inv.Confirm(ctx, "r1", 99); !errors.Is(err, ErrTicketNotFound) {
			t.Fatalf("confirm out of range: expected ErrTicketNotFound, got %v", err)
		}
	})

	t.Run("reject frees the ticket", func(t *testing.T) {
		inv, _ := newTestInventory(t, 0, 10)
		_ = inv.Reserve(ctx, "r1", []int{4}, buyer("Ana"))
		if err := inv.Reject(ctx, "r1", 4); err != nil {
			t.Fatalf("reject: %v", err)
		}
		assertStatus(t, inv, 4, model.StatusAvailable)
	})

	t.Run("release sold ticket makes it reservable again", func(t *testing.T) {
		inv, _ := newTestInventory(t, 0, 10)
		_ = inv.Reserve(ctx, "r1", []int{8}, buyer("Ana"))
		_ = inv.Confirm(ctx, "r1", 8)
		if err := inv.Release(ctx, "r1", 8); err != nil {
			t.Fatalf("release: %v", err)
		}
		assertStatus(t, inv, 8, model.StatusAvailable)
		if err := inv.Reserve(ctx, "r1", []int{8}, buyer("Luis")); err != nil {
			t.Fatalf("reserve after release: %v", err)
		}
		tk, _ := inv.Ticket(ctx, "r1", 8)
		if tk.Buyer.Name != "Luis" {
			t.Fatalf("expected new buyer, got %+v", tk.Buyer)
		}
	})
}

func TestStatusPartition(t *testing.T) {
	ctx := context.Background()
	inv, _ := newTestInventory(t, 10, 30)

	_ = inv.Reserve(ctx, "r1", []int{10, 11, 12, 13}, buyer("Ana"))
	_ = inv.Confirm(ctx, "r1", 11)
	_ = inv.Confirm(ctx, "r1", 12)
	_ = inv.Reject(ctx, "r1", 13)
	_ = inv.Release(ctx, "r1", 12)
	_ = inv.Reserve(ctx, "r1", []int{39}, buyer("Bea"))

	seen := make(map[int]bool)
	for _, st := range []model.TicketStatus{model.StatusAvailable, model.StatusPending, model.StatusSold} {
		tickets, err := inv.TicketsByStatus(ctx, "r1", st)
		if err != nil {
			t.Fatalf("by status: %v", err)
		}
		for _, tk := range tickets {
			if seen[tk.Number] {
				t.Fatalf("ticket %d appears in more than one status", tk.Number)
			}
			seen[tk.Number] = true
		}
	}
	for n := 10; n < 40; n++ {
		if !seen[n] {
			t.Fatalf("ticket %d missing from every status", n)
		}
	}

	c, _ := inv.Counts(ctx, "r1")
	if c.Total() != 30 || c.Pending != 2 || c.Sold != 1 {
		t.Fatalf("unexpected counts %+v", c)
	}
}

func TestLoadsFromStore(t *testing.T) {
	ctx := context.Background()
	inv, store := newTestInventory(t, 0, 10)
	_ = inv.Reserve(ctx, "r1", []int{2}, buyer("Ana"))
	_ = inv.Confirm(ctx, "r1", 2)

	reopened := New(store)
	sold, err := reopened.SoldCount(ctx, "r1")
	if err != nil {
		t.Fatalf("sold count: %v", err)
	}
	if sold != 1 {
		t.Fatalf("expected 1 sold after reload, got %d", sold)
	}

	if err := reopened.Drop(ctx, "r1"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := reopened.Tickets(ctx, "r1"); !errors.Is(err, ErrRaffleNotFound) {
		t.Fatalf("expected ErrRaffleNotFound after drop, got %v", err)
	}
}

func TestReadsDoNotShareBuyers(t *testing.T) {
	ctx := context.Background()
	inv, _ := newTestInventory(t, 0, 5)
	if err := inv.Reserve(ctx, "r1", []int{1}, buyer("Ana")); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	tk, _ := inv.Ticket(ctx, "r1", 1)
	tk.Buyer.Name = "Mallory"
	all, _ := inv.Tickets(ctx, "r1")
	all[1].Buyer.Contact = "000"
	pending, _ := inv.TicketsByStatus(ctx, "r1", model.StatusPending)
	pending[0].Buyer.PaymentReference = "forged"

	got, _ := inv.Ticket(ctx, "r1", 1)
	if got.Buyer.Name != "Ana" || got.Buyer.Contact != "04120000000" || got.Buyer.PaymentReference != "ref-1" {
		t.Fatalf("inventory buyer changed through a returned copy: %+v", *got.Buyer)
	}
}
