// Package events publishes domain events for consumers outside this service,
// such as the waitlist e-mail pipeline.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event names, used as routing keys.
const (
	DropCreated          = "drop.created"
	ReservationCreated   = "reservation.created"
	ReservationCancelled = "reservation.cancelled"
	CapacityReleased     = "drop.capacity_released"
	PickupRedeemed       = "pickup.redeemed"
	ReservationNoShow    = "reservation.no_show"
)

// Envelope is the wire form of every event.
type Envelope struct {
	Event      string          `json:"event"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, name string, payload any) error
	Close() error
}

func encode(name string, payload any, at time.Time) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: name, OccurredAt: at.UTC(), Payload: raw})
}

// LogPublisher writes events to the log. It is the fallback when no broker
// is configured.
type LogPublisher struct {
	log *zap.Logger
}

// NewLogPublisher returns a publisher that logs at info level.
func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log.Named("events")}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, name string, payload any) error {
	body, err := encode(name, payload, time.Now())
	if err != nil {
		return err
	}
	p.log.Info("event", zap.String("event", name), zap.ByteString("body", body))
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Envelope
}

// Publish records the event.
func (r *Recorder) Publish(_ context.Context, name string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.events = append(r.events, Envelope{Event: name, OccurredAt: time.Now().UTC(), Payload: raw})
	r.mu.Unlock()
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Envelope(nil), r.events...)
}

// Named returns the recorded events with the given name.
func (r *Recorder) Named(name string) []Envelope {
	var out []Envelope
	for _, e := range r.Events() {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

// Close is a no-op.
func (r *Recorder) Close() error { return nil }
