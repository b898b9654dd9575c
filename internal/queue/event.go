// Package queue defines the raffle events exchanged over RabbitMQ, the
// publisher used by the service and the background consumer that keeps
// an audit log of them.
package queue

// Queue names.  Each event kind has its own durable queue on the default
// exchange, so the routing key equals the queue name.
const (
	DrawCompletedQueue    = "raffle.draw_completed"
	PaymentConfirmedQueue = "raffle.payment_confirmed"
	PaymentRejectedQueue  = "raffle.payment_rejected"
	SalesMilestoneQueue   = "raffle.sales_milestone"
)

// Queues lists every queue the consumer subscribes to.
var Queues = []string{DrawCompletedQueue, PaymentConfirmedQueue, PaymentRejectedQueue, SalesMilestoneQueue}

// DrawCompletedEvent is published once per draw cycle when a winning
// number has been picked.  WinnerName is empty when the number was not
// sold.
type DrawCompletedEvent struct {
	RaffleID      string `json:"raffle_id"`
	Title         string `json:"title"`
	WinningNumber int    `json:"winning_number"`
	Label         string `json:"label"`
	Sold          bool   `json:"sold"`
	WinnerName    string `json:"winner_name,omitempty"`
	WinnerContact string `json:"winner_contact,omitempty"`
	Manual        bool   `json:"manual"`
	DrawnAt       string `json:"drawn_at"`
}

// PaymentEvent is published when an administrator confirms or rejects the
// payment of a pending ticket.
type PaymentEvent struct {
	RaffleID         string `json:"raffle_id"`
	Number           int    `json:"number"`
	Label            string `json:"label"`
	BuyerName        string `json:"buyer_name"`
	PaymentMethod    string `json:"payment_method"`
	PaymentReference string `json:"payment_reference,omitempty"`
	DecidedBy        string `json:"decided_by,omitempty"`
	DecidedAt        string `json:"decided_at"`
}

// SalesMilestoneEvent is published the first time allocations reach the
// raffle's notify threshold within a draw cycle.
type SalesMilestoneEvent struct {
	RaffleID  string `json:"raffle_id"`
	Title     string `json:"title"`
	Allocated int    `json:"allocated"`
	Total     int    `json:"total"`
	Percent   int    `json:"percent"`
	ReachedAt string `json:"reached_at"`
}
