package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DrawResult is the raw output of a draw: the number picked, before it is
// matched against the inventory.
type DrawResult struct {
	RaffleID      string    `json:"raffle_id"`
	WinningNumber int       `json:"winning_number"`
	DrawnAt       time.Time `json:"drawn_at"`
}

// WinnerInfo identifies the buyer of the Sold ticket matching a draw.
type WinnerInfo struct {
	Number           int           `json:"number"`
	Name             string        `json:"name"`
	Contact          string        `json:"contact"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	PaymentReference string        `json:"payment_reference,omitempty"`
}

// WinnerState is the answer to "who won this raffle".
type WinnerState string

const (
	WinnerFound    WinnerState = "winner"
	WinnerUnsold   WinnerState = "unsold"
	WinnerNotDrawn WinnerState = "not_drawn"
)

// WinnerStatus is returned by winner queries.  Number is nil while the
// raffle has not been drawn and Winner is nil unless State is WinnerFound.
type WinnerStatus struct {
	State  WinnerState `json:"state"`
	Number *int        `json:"number,omitempty"`
	Label  string      `json:"label,omitempty"`
	Winner *WinnerInfo `json:"winner,omitempty"`
}

// FinanceSummary is the bookkeeping view of a raffle.
type FinanceSummary struct {
	RaffleID     string          `json:"raffle_id"`
	Available    int             `json:"available"`
	Pending      int             `json:"pending"`
	Sold         int             `json:"sold"`
	TicketPrice  decimal.Decimal `json:"ticket_price"`
	Collected    decimal.Decimal `json:"collected"`
	PrizePercent int             `json:"prize_percent"`
	PrizePayout  decimal.Decimal `json:"prize_payout"`
}

// PublicWinner is what an unauthenticated caller may learn about a
// winner: the number and the buyer's name, never how to reach or verify
// them.
type PublicWinner struct {
	Number int    `json:"number"`
	Label  string `json:"label"`
	Name   string `json:"name"`
}

// PublicWinnerStatus is the WinnerStatus served on public routes.
type PublicWinnerStatus struct {
	State  WinnerState   `json:"state"`
	Number *int          `json:"number,omitempty"`
	Label  string        `json:"label,omitempty"`
	Winner *PublicWinner `json:"winner,omitempty"`
}

// Public drops the winner's contact and payment data.
func (s WinnerStatus) Public() PublicWinnerStatus {
	out := PublicWinnerStatus{State: s.State, Number: s.Number, Label: s.Label}
	if s.Winner != nil {
		out.Winner = &PublicWinner{Number: s.Winner.Number, Label: s.Label, Name: s.Winner.Name}
	}
	return out
}
