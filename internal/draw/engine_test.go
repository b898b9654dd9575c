package draw

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/raffle-ticketing/internal/inventory"
	"github.com/iliyamo/raffle-ticketing/internal/model"
	"github.com/shopspring/decimal"
)

// fixedSource always returns the same offset.
type fixedSource int

func (f fixedSource) Intn(n int) (int, error) { return int(f) % n, nil }

var now = time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrInt(n int) *int              { return &n }

func newRaffle(mode model.TriggerMode, start, count int) model.Raffle {
	return model.Raffle{
		ID:             "r1",
		StartNumber:    start,
		TicketCount:    count,
		TicketPrice:    decimal.NewFromInt(1),
		TriggerMode:    mode,
		SalesThreshold: 100,
		IsActive:       true,
	}
}

func newInventory(t *testing.T, r model.Raffle) *inventory.Inventory {
	t.Helper()
	inv := inventory.New(nil)
	if _, err := inv.Initialize(context.Background(), r.ID, r.StartNumber, r.TicketCount); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return inv
}

func sell(t *testing.T, inv *inventory.Inventory, name string, numbers ...int) {
	t.Helper()
	ctx := context.Background()
	if err := inv.Reserve(ctx, "r1", numbers, model.Buyer{Name: name, Contact: "0412", PaymentMethod: model.PaymentCash}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	for _, n := range numbers {
		if err := inv.Confirm(ctx, "r1", n); err != nil {
			t.Fatalf("confirm %d: %v", n, err)
		}
	}
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()
	e := NewEngine()

	t.Run("date mode fires iff close date passed", func(t *testing.T) {
		r := newRaffle(model.TriggerDate, 0, 100)
		inv := newInventory(t, r)
		sell(t, inv, "Ana", 1, 2, 3)

		cases := []struct {
			name  string
			close time.Time
			want  Decision
		}{
			{"future", now.Add(time.Minute), NotYet},
			{"exactly now", now, Fire},
			{"past", now.Add(-time.Hour), Fire},
		}
		for _, tc := range cases {
			r.CloseDate = ptrTime(tc.close)
			got, err := e.Evaluate(ctx, r, inv, now)
			if err != nil {
				t.Fatalf("%s: %v", tc.name, err)
			}
			if got != tc.want {
				t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
			}
		}
	})

	t.Run("date mode without close date never fires", func(t *testing.T) {
		r := newRaffle(model.TriggerDate, 0, 10)
		inv := newInventory(t, r)
		sell(t, inv, "Ana", 0, 1, 2, 3, 4, 5, 6, 7, 8, 9)
		got, _ := e.Evaluate(ctx, r, inv, now)
		if got != NotYet {
			t.Fatalf("expected not_yet, got %s", got)
		}
	})

	t.Run("sales mode ignores the date", func(t *testing.T) {
		r := newRaffle(model.TriggerSales, 0, 1000)
		r.CloseDate = ptrTime(now.Add(-24 * time.Hour))
		inv := newInventory(t, r)

		nums := make([]int, 0, 999)
		for i := 0; i < 999; i++ {
			nums = append(nums, i)
		}
		if err := inv.Reserve(ctx, "r1", nums, model.Buyer{Name: "bulk"}); err != nil {
			t.Fatalf("reserve: %v", err)
		}
		got, _ := e.Evaluate(ctx, r, inv, now)
		if got != NotYet {
			t.Fatalf("999/1000 allocated: expected not_yet, got %s", got)
		}

		if err := inv.Reserve(ctx, "r1", []int{999}, model.Buyer{Name: "last"}); err != nil {
			t.Fatalf("reserve last: %v", err)
		}
		got, _ = e.Evaluate(ctx, r, inv, now)
		if got != Fire {
			t.Fatalf("1000/1000 allocated: expected fire, got %s", got)
		}
	})

	t.Run("sales threshold percentage rounds up", func(t *testing.T) {
		r := newRaffle(model.TriggerSales, 1, 10)
		r.SalesThreshold = 25 // ceil(2.5) = 3 tickets
		inv := newInventory(t, r)
		sell(t, inv, "Ana", 1, 2)
		if got, _ := e.Evaluate(ctx, r, inv, now); got != NotYet {
			t.Fatalf("2 of 3: expected not_yet, got %s", got)
		}
		sell(t, inv, "Ana", 3)
		if got, _ := e.Evaluate(ctx, r, inv, now); got != Fire {
			t.Fatalf("3 of 3: expected fire, got %s", got)
		}
	})

	t.Run("hybrid fires on either condition", func(t *testing.T) {
		r := newRaffle(model.TriggerHybrid, 0, 4)
		r.CloseDate = ptrTime(now.Add(time.Hour))
		inv := newInventory(t, r)
		if got, _ := e.Evaluate(ctx, r, inv, now); got != NotYet {
			t.Fatalf("neither: expected not_yet, got %s", got)
		}
		if got, _ := e.Evaluate(ctx, r, inv, now.Add(2*time.Hour)); got != Fire {
			t.Fatalf("date: expected fire, got %s", got)
		}
		sell(t, inv, "Ana", 0, 1, 2, 3)
		if got, _ := e.Evaluate(ctx, r, inv, now); got != Fire {
			t.Fatalf("sales: expected fire, got %s", got)
		}
	})

	t.Run("drawn or inactive raffles never fire", func(t *testing.T) {
		r := newRaffle(model.TriggerDate, 0, 10)
		r.CloseDate = ptrTime(now.Add(-time.Hour))
		inv := newInventory(t, r)

		drawn := r
		drawn.WinningNumber = ptrInt(3)
		if got, _ := e.Evaluate(ctx, drawn, inv, now); got != NotYet {
			t.Fatalf("drawn: expected not_yet, got %s", got)
		}
		inactive := r
		inactive.IsActive = false
		if got, _ := e.Evaluate(ctx, inactive, inv, now); got != NotYet {
			t.Fatalf("inactive: expected not_yet, got %s", got)
		}
	})

	t.Run("is repeatable", func(t *testing.T) {
		r := newRaffle(model.TriggerDate, 0, 10)
		r.CloseDate = ptrTime(now.Add(-time.Hour))
		inv := newInventory(t, r)
		for i := 0; i < 3; i++ {
			if got, _ := e.Evaluate(ctx, r, inv, now); got != Fire {
				t.Fatalf("call %d: expected fire, got %s", i, got)
			}
		}
	})
}

func TestDrawAndReconcile(t *testing.T) {
	ctx := context.Background()

	r := newRaffle(model.TriggerDate, 0, 100)
	r.CloseDate = ptrTime(now.Add(-time.Minute))
	inv := newInventory(t, r)
	sell(t, inv, "Ana", 42)
	if err := inv.Reserve(ctx, "r1", []int{44}, model.Buyer{Name: "Pending Pete"}); err != nil {
		t.Fatalf("reserve 44: %v", err)
	}

	if got, _ := NewEngine().Evaluate(ctx, r, inv, now); got != Fire {
		t.Fatalf("expected fire, got %s", got)
	}

	t.Run("sold number wins", func(t *testing.T) {
		e := NewEngine(WithRandom(fixedSource(42)))
		res, err := e.Draw(r)
		if err != nil {
			t.Fatalf("draw: %v", err)
		}
		if res.WinningNumber != 42 {
			t.Fatalf("expected 42, got %d", res.WinningNumber)
		}
		w, err := e.Reconcile(ctx, res, inv)
		if err != nil {
			t.Fatalf("reconcile: %v", err)
		}
		if w == nil || w.Name != "Ana" || w.Number != 42 {
			t.Fatalf("expected Ana to win with 42, got %+v", w)
		}
		again, _ := e.Reconcile(ctx, res, inv)
		if again == nil || *again != *w {
			t.Fatalf("reconcile not repeatable: %+v vs %+v", again, w)
		}
	})

	t.Run("unsold number has no winner", func(t *testing.T) {
		e := NewEngine(WithRandom(fixedSource(43)))
		res, _ := e.Draw(r)
		w, err := e.Reconcile(ctx, res, inv)
		if err != nil {
			t.Fatalf("reconcile: %v", err)
		}
		if w != nil {
			t.Fatalf("expected unsold, got %+v", w)
		}
	})

	t.Run("pending number has no winner", func(t *testing.T) {
		e := NewEngine(WithRandom(fixedSource(44)))
		res, _ := e.Draw(r)
		if w, _ := e.Reconcile(ctx, res, inv); w != nil {
			t.Fatalf("pending ticket must not win, got %+v", w)
		}
	})

	t.Run("second draw is refused", func(t *testing.T) {
		drawn := r
		drawn.WinningNumber = ptrInt(42)
		if _, err := NewEngine().Draw(drawn); !errors.Is(err, ErrAlreadyDrawn) {
			t.Fatalf("expected ErrAlreadyDrawn, got %v", err)
		}
	})
}

func TestDrawHonoursStartOffset(t *testing.T) {
	r := newRaffle(model.TriggerSales, 500, 20)
	e := NewEngine()
	for i := 0; i < 200; i++ {
		res, err := e.Draw(r)
		if err != nil {
			t.Fatalf("draw: %v", err)
		}
		if res.WinningNumber < 500 || res.WinningNumber > 519 {
			t.Fatalf("winning number %d outside [500, 519]", res.WinningNumber)
		}
	}
	last, _ := NewEngine(WithRandom(fixedSource(19))).Draw(r)
	if last.WinningNumber != 519 {
		t.Fatalf("expected highest offset to map to 519, got %d", last.WinningNumber)
	}
}

func TestRevokeDraw(t *testing.T) {
	r := newRaffle(model.TriggerHybrid, 0, 10)
	r.CloseDate = ptrTime(now.Add(-time.Hour))
	r.WinningNumber = ptrInt(7)
	r.Winner = &model.WinnerInfo{Number: 7, Name: "Ana"}
	r.DrawnAt = ptrTime(now)
	r.MilestoneNotified = true
	r.IsActive = false

	if err := RevokeDraw(&r, Reset{SalesThreshold: ptrInt(0)}); !errors.Is(err, ErrInvalidThreshold) {
		t.Fatalf("expected ErrInvalidThreshold, got %v", err)
	}
	if r.WinningNumber == nil {
		t.Fatal("failed revoke must not clear the winner")
	}

	newClose := now.Add(48 * time.Hour)
	if err := RevokeDraw(&r, Reset{CloseDate: &newClose, SalesThreshold: ptrInt(80), Reactivate: true}); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if r.Drawn() || r.Winner != nil || r.DrawnAt != nil || r.MilestoneNotified {
		t.Fatalf("draw state not cleared: %+v", r)
	}
	if !r.IsActive || r.SalesThreshold != 80 || !r.CloseDate.Equal(newClose) {
		t.Fatalf("reset not applied: %+v", r)
	}

	inv := newInventory(t, r)
	if got, _ := NewEngine().Evaluate(context.Background(), r, inv, now); got != NotYet {
		t.Fatalf("expected revoked raffle not to refire, got %s", got)
	}
}

func TestCryptoSourceRange(t *testing.T) {
	src := CryptoSource()
	for i := 0; i < 100; i++ {
		v, err := src.Intn(3)
		if err != nil {
			t.Fatalf("intn: %v", err)
		}
		if v < 0 || v >= 3 {
			t.Fatalf("value %d out of range", v)
		}
	}
	if _, err := src.Intn(0); err == nil {
		t.Fatal("expected error for empty range")
	}
}
