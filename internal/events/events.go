// Package events publishes domain events (achievements, feed posts) to
// subscribers outside the process. Publishing is best effort: callers log
// failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	TypeAchievement = "achievements"
	TypeFeed        = "feed"
)

// Event is the JSON payload sent on every subject.
type Event struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
	Period    string    `json:"period,omitempty"`
	Author    string    `json:"author,omitempty"`
	Text      string    `json:"text,omitempty"`
	Played    int       `json:"played,omitempty"`
	Goal      int       `json:"goal,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// Noop discards events. Used when NATS_URL is unset.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close()                               {}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Close() {}

// NATSPublisher sends events as core NATS messages on <prefix>.<type>.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher connects to url. An empty url yields a Noop publisher.
func NewNATSPublisher(url, prefix string) (Publisher, error) {
	if url == "" {
		return Noop{}, nil
	}

	conn, err := nats.Connect(url,
		nats.Name("respectcircle"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	slog.Info("nats publisher connected", "url", url, "prefix", prefix)
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

func (p *NATSPublisher) Subject(eventType string) string {
	return Subject(p.prefix, eventType)
}

func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.conn.Publish(p.Subject(event.Type), data)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	// Flush only when the caller gave us a deadline to respect.
	if _, ok := ctx.Deadline(); ok {
		err = p.conn.FlushWithContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to flush event: %w", err)
		}
	}

	slog.Debug("event published", "subject", p.Subject(event.Type), "user_id", event.UserID)
	return nil
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		err := p.conn.Drain()
		if err != nil {
			p.conn.Close()
		}
	}
}

func Subject(prefix, eventType string) string {
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}
