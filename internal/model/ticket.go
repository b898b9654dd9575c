package model

import (
	"fmt"
	"strconv"
	"time"
)

// TicketStatus is the lifecycle state of a single ticket.
type TicketStatus string

const (
	StatusAvailable TicketStatus = "AVAILABLE"
	StatusPending   TicketStatus = "PENDING"
	StatusSold      TicketStatus = "SOLD"
)

// Allocated reports whether the status takes the ticket off sale.
func (s TicketStatus) Allocated() bool { return s == StatusPending || s == StatusSold }

// PaymentMethod is how a buyer says they paid.  Payment is verified
// manually by an administrator, never against a gateway.
type PaymentMethod string

const (
	PaymentCash      PaymentMethod = "cash"
	PaymentTransfer  PaymentMethod = "transfer"
	PaymentCrypto    PaymentMethod = "crypto"
	PaymentPagoMovil PaymentMethod = "pago_movil"
	PaymentOther     PaymentMethod = "other"
)

// Valid reports whether m is an accepted payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentTransfer, PaymentCrypto, PaymentPagoMovil, PaymentOther:
		return true
	}
	return false
}

// Buyer holds the registration data attached to Pending and Sold tickets.
type Buyer struct {
	Name             string        `json:"name"`
	Contact          string        `json:"contact"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	PaymentReference string        `json:"payment_reference,omitempty"`
	NationalID       string        `json:"national_id,omitempty"`
	RegisteredAt     time.Time     `json:"registered_at"`
}

// Ticket is one numbered unit of a raffle.  Buyer is nil while the
// ticket is Available.
type Ticket struct {
	RaffleID  string       `json:"raffle_id"`
	Number    int          `json:"number"`
	Status    TicketStatus `json:"status"`
	Buyer     *Buyer       `json:"buyer,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Label renders the ticket number zero-padded to width digits.
func (t Ticket) Label(width int) string { return FormatNumber(t.Number, width) }

// FormatNumber zero-pads n to width digits ("7" -> "007" for width 3).
func FormatNumber(n, width int) string {
	if width <= 0 {
		return strconv.Itoa(n)
	}
	return fmt.Sprintf("%0*d", width, n)
}

// LabelWidth returns the number of decimal digits of the highest ticket
// number in [start, start+count-1].  A 0..999 grid yields 3.
func LabelWidth(start, count int) int {
	last := start + count - 1
	if last < 0 {
		last = -last
	}
	w := 1
	for last >= 10 {
		last /= 10
		w++
	}
	return w
}
