package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/raffle-ticketing/internal/model"
)

// RedisStore keeps each raffle as a JSON string under <prefix>:raffle:<id>,
// its tickets in the hash <prefix>:raffle:<id>:tickets (field = number)
// and the set of known IDs in <prefix>:raffles.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore returns a RedisStore using rdb.  An empty prefix
// defaults to "raffle".
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "raffle"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) raffleKey(id string) string  { return s.prefix + ":raffle:" + id }
func (s *RedisStore) ticketsKey(id string) string { return s.prefix + ":raffle:" + id + ":tickets" }
func (s *RedisStore) indexKey() string            { return s.prefix + ":raffles" }

func (s *RedisStore) GetRaffle(ctx context.Context, id string) (model.Raffle, error) {
	body, err := s.rdb.Get(ctx, s.raffleKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Raffle{}, ErrNotFound
	}
	if err != nil {
		return model.Raffle{}, fmt.Errorf("redis: get raffle %s: %w", id, err)
	}
	var r model.Raffle
	if err := json.Unmarshal(body, &r); err != nil {
		return model.Raffle{}, fmt.Errorf("redis: decode raffle %s: %w", id, err)
	}
	return r, nil
}

func (s *RedisStore) SaveRaffle(ctx context.Context, r model.Raffle) error {
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.raffleKey(r.ID), body, 0)
		p.SAdd(ctx, s.indexKey(), r.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: save raffle %s: %w", r.ID, err)
	}
	return nil
}

// ListRaffles returns every indexed raffle, newest first.  IDs whose
// document has disappeared are skipped.
func (s *RedisStore) ListRaffles(ctx context.Context) ([]model.Raffle, error) {
	ids, err := s.rdb.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list raffles: %w", err)
	}
	out := make([]model.Raffle, 0, len(ids))
	for _, id := range ids {
		r, err := s.GetRaffle(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *RedisStore) DeleteRaffle(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		del = p.Del(ctx, s.raffleKey(id))
		p.SRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: delete raffle %s: %w", id, err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) LoadTickets(ctx context.Context, raffleID string) ([]model.Ticket, error) {
	fields, err := s.rdb.HGetAll(ctx, s.ticketsKey(raffleID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load tickets %s: %w", raffleID, err)
	}
	tickets := make([]model.Ticket, 0, len(fields))
	for field, body := range fields {
		var t model.Ticket
		if err := json.Unmarshal([]byte(body), &t); err != nil {
			return nil, fmt.Errorf("redis: decode ticket %s: %w", field, err)
		}
		tickets = append(tickets, t)
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].Number < tickets[j].Number })
	return tickets, nil
}

// PutTickets writes all tickets in one MULTI/EXEC so a batch is applied
// atomically.
func (s *RedisStore) PutTickets(ctx context.Context, raffleID string, tickets []model.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(tickets)*2)
	for _, t := range tickets {
		body, err := json.Marshal(t)
		if err != nil {
			return err
		}
		values = append(values, strconv.Itoa(t.Number), body)
	}
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, s.ticketsKey(raffleID), values...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: put tickets %s: %w", raffleID, err)
	}
	return nil
}

func (s *RedisStore) DeleteTickets(ctx context.Context, raffleID string) error {
	if err := s.rdb.Del(ctx, s.ticketsKey(raffleID)).Err(); err != nil {
		return fmt.Errorf("redis: delete tickets %s: %w", raffleID, err)
	}
	return nil
}
