package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/raffle-ticketing/internal/model"
)

// ticketChunk bounds the rows per INSERT so a 1000-ticket grid stays
// well under MySQL's placeholder limit.
const ticketChunk = 500

// MySQLStore persists raffles as JSON documents keyed by ID and tickets
// as one row per (raffle_id, number).  All timestamps are stored in UTC.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a MySQLStore bound to db.  The schema is created
// by database.EnsureSchema.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

// GetRaffle loads a raffle document.  It returns ErrNotFound if there
// is no matching row.
func (s *MySQLStore) GetRaffle(ctx context.Context, id string) (model.Raffle, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM raffles WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Raffle{}, ErrNotFound
	}
	if err != nil {
		return model.Raffle{}, err
	}
	var r model.Raffle
	if err := json.Unmarshal(body, &r); err != nil {
		return model.Raffle{}, fmt.Errorf("decode raffle %s: %w", id, err)
	}
	return r, nil
}

// SaveRaffle inserts or replaces the raffle document.  is_active is kept
// in its own column so listings can filter without decoding JSON.
func (s *MySQLStore) SaveRaffle(ctx context.Context, r model.Raffle) error {
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}
	const q = `INSERT INTO raffles (id, body, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
               ON DUPLICATE KEY UPDATE body = VALUES(body), is_active = VALUES(is_active), updated_at = VALUES(updated_at)`
	_, err = s.db.ExecContext(ctx, q, r.ID, body, r.IsActive, r.CreatedAt.UTC(), r.UpdatedAt.UTC())
	return err
}

// ListRaffles returns every raffle, newest first.
func (s *MySQLStore) ListRaffles(ctx context.Context) ([]model.Raffle, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM raffles ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Raffle
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var r model.Raffle
		if err := json.Unmarshal(body, &r); err != nil {
			return nil, fmt.Errorf("decode raffle: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRaffle removes the raffle row.  Tickets are removed separately
// through DeleteTickets so the inventory can drop its cache first.
func (s *MySQLStore) DeleteRaffle(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM raffles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// LoadTickets returns the tickets of a raffle ordered by number, or an
// empty slice when there are none.
func (s *MySQLStore) LoadTickets(ctx context.Context, raffleID string) ([]model.Ticket, error) {
	const q = `SELECT number, status, buyer, updated_at FROM raffle_tickets WHERE raffle_id = ? ORDER BY number`
	rows, err := s.db.QueryContext(ctx, q, raffleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets := make([]model.Ticket, 0)
	for rows.Next() {
		var (
			t     model.Ticket
			buyer []byte
		)
		t.RaffleID = raffleID
		if err := rows.Scan(&t.Number, &t.Status, &buyer, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if len(buyer) > 0 {
			var b model.Buyer
			if err := json.Unmarshal(buyer, &b); err != nil {
				return nil, fmt.Errorf("decode buyer of ticket %d: %w", t.Number, err)
			}
			t.Buyer = &b
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

// PutTickets upserts tickets inside one transaction so a reservation
// batch is stored completely or not at all.
func (s *MySQLStore) PutTickets(ctx context.Context, raffleID string, tickets []model.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for start := 0; start < len(tickets); start += ticketChunk {
		end := start + ticketChunk
		if end > len(tickets) {
			end = len(tickets)
		}
		if err := putTicketsTx(ctx, tx, raffleID, tickets[start:end]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func putTicketsTx(ctx context.Context, tx *sql.Tx, raffleID string, tickets []model.Ticket) error {
	var q strings.Builder
	q.WriteString(`INSERT INTO raffle_tickets (raffle_id, number, status, buyer, updated_at) VALUES `)
	args := make([]interface{}, 0, len(tickets)*5)
	for i, t := range tickets {
		if i > 0 {
			q.WriteString(",")
		}
		q.WriteString("(?, ?, ?, ?, ?)")
		var buyer interface{}
		if t.Buyer != nil {
			b, err := json.Marshal(t.Buyer)
			if err != nil {
				return err
			}
			buyer = b
		}
		args = append(args, raffleID, t.Number, string(t.Status), buyer, t.UpdatedAt.UTC())
	}
	q.WriteString(` ON DUPLICATE KEY UPDATE status = VALUES(status), buyer = VALUES(buyer), updated_at = VALUES(updated_at)`)
	_, err := tx.ExecContext(ctx, q.String(), args...)
	return err
}

// DeleteTickets removes every ticket of a raffle.
func (s *MySQLStore) DeleteTickets(ctx context.Context, raffleID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM raffle_tickets WHERE raffle_id = ?`, raffleID)
	return err
}
