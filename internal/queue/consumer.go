package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// StartEventConsumer subscribes to every raffle queue and appends one line
// per event to <dir>/raffle.log.  It reconnects with exponential backoff
// and returns only when ctx is cancelled.
func StartEventConsumer(ctx context.Context, url, dir string) error {
	if url == "" {
		url = DefaultURL
	}
	sink := &fileSink{path: filepath.Join(dir, "raffle.log")}

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warningf("event-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, sink)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warningf("event-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, sink *fileSink) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warningf("event-consumer: set QoS failed: %v", err)
	}

	merged := make(chan amqp.Delivery)
	var wg sync.WaitGroup
	for _, q := range Queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		wg.Add(1)
		go func(msgs <-chan amqp.Delivery) {
			defer wg.Done()
			for d := range msgs {
				select {
				case merged <- d:
				case <-ctx.Done():
					return
				}
			}
		}(msgs)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-merged:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			line, err := formatEvent(d.RoutingKey, d.Body)
			if err == nil {
				err = sink.append(line)
			}
			if err != nil {
				logger.Errorf("event-consumer: handle %s failed: %v", d.RoutingKey, err)
				_ = d.Nack(false, false) // do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// formatEvent renders a delivery as a single human-readable log line.
func formatEvent(queue string, body []byte) (string, error) {
	switch queue {
	case DrawCompletedQueue:
		var ev DrawCompletedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		winner := "unsold"
		if ev.Sold {
			winner = fmt.Sprintf("%q <%s>", ev.WinnerName, ev.WinnerContact)
		}
		return fmt.Sprintf("[%s] Draw completed | raffle_id=%s | title=%q | number=%s | winner=%s | manual=%t\n",
			ev.DrawnAt, ev.RaffleID, ev.Title, ev.Label, winner, ev.Manual), nil
	case PaymentConfirmedQueue, PaymentRejectedQueue:
		var ev PaymentEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		verb := "confirmed"
		if queue == PaymentRejectedQueue {
			verb = "rejected"
		}
		return fmt.Sprintf("[%s] Payment %s | raffle_id=%s | number=%s | buyer=%q | method=%s | ref=%q | by=%s\n",
			ev.DecidedAt, verb, ev.RaffleID, ev.Label, ev.BuyerName, ev.PaymentMethod, ev.PaymentReference, ev.DecidedBy), nil
	case SalesMilestoneQueue:
		var ev SalesMilestoneEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Sales milestone | raffle_id=%s | title=%q | allocated=%d/%d | threshold=%d%%\n",
			ev.ReachedAt, ev.RaffleID, ev.Title, ev.Allocated, ev.Total, ev.Percent), nil
	}
	return "", fmt.Errorf("unknown queue %q", queue)
}

type fileSink struct {
	mu   sync.Mutex
	path string
}

func (s *fileSink) append(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
