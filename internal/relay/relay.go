// Package relay fans loan status changes out to live subscribers. It keeps no history: a
// subscriber only sees events published while it is registered.
package relay

import (
	"context"
	"sync"
	"time"

	"credhealth/internal/domain/loan"
)

const EventLoanStatusChanged = "LOAN_STATUS_CHANGED"

// Event carries the loan as it was right after the transition.
type Event struct {
	Type       string       `json:"type"`
	Trigger    loan.Trigger `json:"trigger"`
	Loan       loan.Loan    `json:"loan"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// NewLoanStatusChanged builds the event for l after trigger t fired.
func NewLoanStatusChanged(t loan.Trigger, l loan.Loan, at time.Time) Event {
	return Event{Type: EventLoanStatusChanged, Trigger: t, Loan: l, OccurredAt: at.UTC()}
}

// Relay is created once per process and shared by publishers and stream handlers.
type Relay struct {
	mu   sync.RWMutex
	subs map[int]*subscriber
	next int

	// OnChange, when set, is called with the subscriber count after every change.
	OnChange func(n int)
}

func New() *Relay {
	return &Relay{subs: make(map[int]*subscriber)}
}

// Subscribe registers a subscriber and returns the channel it receives events on, in publish
// order. The channel is closed once ctx is done; nothing is delivered after that.
func (r *Relay) Subscribe(ctx context.Context) <-chan Event {
	s := &subscriber{
		notify: make(chan struct{}, 1),
		out:    make(chan Event),
	}

	r.mu.Lock()
	id := r.next
	r.next++
	r.subs[id] = s
	n := len(r.subs)
	r.mu.Unlock()
	r.changed(n)

	go func() {
		s.pump(ctx)
		r.mu.Lock()
		delete(r.subs, id)
		n := len(r.subs)
		r.mu.Unlock()
		close(s.out)
		r.changed(n)
	}()

	return s.out
}

// Publish queues evt for every current subscriber and returns without waiting for delivery.
func (r *Relay) Publish(evt Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.subs {
		s.enqueue(evt)
	}
}

// Subscribers returns the number of registered subscribers.
func (r *Relay) Subscribers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

func (r *Relay) changed(n int) {
	if r.OnChange != nil {
		r.OnChange(n)
	}
}

type subscriber struct {
	mu      sync.Mutex
	pending []Event
	notify  chan struct{}
	out     chan Event
}

func (s *subscriber) enqueue(evt Event) {
	s.mu.Lock()
	s.pending = append(s.pending, evt)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// pump moves queued events to out until ctx ends.
func (s *subscriber) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.notify:
		}

		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, evt := range batch {
			if ctx.Err() != nil {
				return
			}
			select {
			case s.out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}
}
