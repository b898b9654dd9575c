package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TriggerMode selects which condition may fire a raffle's draw.
type TriggerMode string

const (
	TriggerDate   TriggerMode = "date"   // fire once CloseDate has passed
	TriggerSales  TriggerMode = "sales"  // fire once the sales threshold is allocated
	TriggerHybrid TriggerMode = "hybrid" // whichever of the two happens first
)

// Valid reports whether m is one of the known trigger modes.
func (m TriggerMode) Valid() bool {
	switch m {
	case TriggerDate, TriggerSales, TriggerHybrid:
		return true
	}
	return false
}

// UsesDate reports whether the close date can fire the draw under m.
func (m TriggerMode) UsesDate() bool { return m == TriggerDate || m == TriggerHybrid }

// UsesSales reports whether the sales threshold can fire the draw under m.
func (m TriggerMode) UsesSales() bool { return m == TriggerSales || m == TriggerHybrid }

// Raffle is one sellable lottery instance.  It exclusively owns its
// tickets, which live in the inventory under the same ID.
//
// Fields:
//
//	ID                – opaque identifier, assigned at creation.
//	StartNumber       – first ticket number of the grid.
//	TicketCount       – number of tickets, fixed at creation.
//	TicketPrice       – price of a single ticket.
//	CloseDate         – optional date trigger; nil disables it.
//	TriggerMode       – date, sales or hybrid.
//	SalesThreshold    – percentage (1..100) of tickets that must be allocated.
//	NotifyThreshold   – percentage at which a milestone event is published (0 = off).
//	PrizePercent      – share of the collected amount paid out as prize.
//	WinningNumber     – set once per draw cycle.
//	Winner            – reconciliation snapshot taken when the draw fired.
//	IsActive          – inactive raffles accept no allocations.
type Raffle struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	Terms             string          `json:"terms,omitempty"`
	StartNumber       int             `json:"start_number"`
	TicketCount       int             `json:"ticket_count"`
	TicketPrice       decimal.Decimal `json:"ticket_price"`
	CloseDate         *time.Time      `json:"close_date,omitempty"`
	TriggerMode       TriggerMode     `json:"trigger_mode"`
	SalesThreshold    int             `json:"sales_threshold"`
	NotifyThreshold   int             `json:"notify_threshold"`
	PrizePercent      int             `json:"prize_percent"`
	WinningNumber     *int            `json:"winning_number,omitempty"`
	Winner            *WinnerInfo     `json:"winner,omitempty"`
	DrawnAt           *time.Time      `json:"drawn_at,omitempty"`
	MilestoneNotified bool            `json:"milestone_notified"`
	IsActive          bool            `json:"is_active"`
	ManagedBy         string          `json:"managed_by,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// EndNumber is the highest ticket number of the raffle.
func (r Raffle) EndNumber() int { return r.StartNumber + r.TicketCount - 1 }

// InRange reports whether n is a ticket number of this raffle.
func (r Raffle) InRange(n int) bool { return n >= r.StartNumber && n <= r.EndNumber() }

// Drawn reports whether the current cycle already has a winning number.
func (r Raffle) Drawn() bool { return r.WinningNumber != nil }

// SalesTarget is the number of allocated tickets that satisfies the sales
// trigger: ceil(TicketCount * SalesThreshold / 100), never less than one.
func (r Raffle) SalesTarget() int { return percentOf(r.TicketCount, r.SalesThreshold) }

// NotifyTarget is the allocation count of the milestone event, or zero
// when notifications are disabled.
func (r Raffle) NotifyTarget() int {
	if r.NotifyThreshold <= 0 {
		return 0
	}
	return percentOf(r.TicketCount, r.NotifyThreshold)
}

// LabelWidth is the display width used to zero-pad ticket labels.
func (r Raffle) LabelWidth() int { return LabelWidth(r.StartNumber, r.TicketCount) }

func percentOf(total, pct int) int {
	if pct <= 0 {
		pct = 100
	}
	if pct > 100 {
		pct = 100
	}
	n := (total*pct + 99) / 100
	if n < 1 {
		n = 1
	}
	return n
}

// PublicRaffle is the Raffle served on public routes.  The winner is
// reduced to a PublicWinner and bookkeeping fields are left out.
type PublicRaffle struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	Terms          string          `json:"terms,omitempty"`
	StartNumber    int             `json:"start_number"`
	TicketCount    int             `json:"ticket_count"`
	TicketPrice    decimal.Decimal `json:"ticket_price"`
	CloseDate      *time.Time      `json:"close_date,omitempty"`
	TriggerMode    TriggerMode     `json:"trigger_mode"`
	SalesThreshold int             `json:"sales_threshold"`
	PrizePercent   int             `json:"prize_percent"`
	WinningNumber  *int            `json:"winning_number,omitempty"`
	WinningLabel   string          `json:"winning_label,omitempty"`
	Winner         *PublicWinner   `json:"winner,omitempty"`
	DrawnAt        *time.Time      `json:"drawn_at,omitempty"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Public returns the view of r that is safe to show without a login.
func (r Raffle) Public() PublicRaffle {
	p := PublicRaffle{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		Terms:          r.Terms,
		StartNumber:    r.StartNumber,
		TicketCount:    r.TicketCount,
		TicketPrice:    r.TicketPrice,
		CloseDate:      r.CloseDate,
		TriggerMode:    r.TriggerMode,
		SalesThreshold: r.SalesThreshold,
		PrizePercent:   r.PrizePercent,
		WinningNumber:  r.WinningNumber,
		DrawnAt:        r.DrawnAt,
		IsActive:       r.IsActive,
		CreatedAt:      r.CreatedAt,
	}
	if r.WinningNumber != nil {
		p.WinningLabel = FormatNumber(*r.WinningNumber, r.LabelWidth())
	}
	if r.Winner != nil {
		p.Winner = &PublicWinner{Number: r.Winner.Number, Label: p.WinningLabel, Name: r.Winner.Name}
	}
	return p
}

// PublicRaffles maps Public over rs.
func PublicRaffles(rs []Raffle) []PublicRaffle {
	out := make([]PublicRaffle, len(rs))
	for i, r := range rs {
		out[i] = r.Public()
	}
	return out
}
