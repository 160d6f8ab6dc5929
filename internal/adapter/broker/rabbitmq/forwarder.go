package rabbitmq

import (
	"context"
	"strings"
	"time"

	"credhealth/internal/relay"

	"go.uber.org/zap"
)

// Subscriber is the read side of the notification relay.
type Subscriber interface {
	Subscribe(ctx context.Context) <-chan relay.Event
}

// Forwarder copies every relay event to the broker. Broker errors are logged only; they never
// reach the caller that fired the transition.
type Forwarder struct {
	events   Subscriber
	pub      Publisher
	exchange string
	timeout  time.Duration
	logger   *zap.Logger
}

func NewForwarder(events Subscriber, pub Publisher, exchange string, logger *zap.Logger) *Forwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Forwarder{events: events, pub: pub, exchange: exchange, timeout: 5 * time.Second, logger: logger}
}

// RoutingKey is loan.status.<status in lower case>.
func RoutingKey(evt relay.Event) string {
	return "loan.status." + strings.ToLower(string(evt.Loan.Status))
}

// Run subscribes and forwards until ctx is done.
func (f *Forwarder) Run(ctx context.Context) {
	for evt := range f.events.Subscribe(ctx) {
		key := RoutingKey(evt)
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		err := f.pub.Publish(pubCtx, f.exchange, key, evt)
		cancel()
		if err != nil {
			f.logger.Warn("forward loan event failed",
				zap.String("loan_id", evt.Loan.LoanID),
				zap.String("routing_key", key),
				zap.Error(err),
			)
		}
	}
	f.logger.Info("loan event forwarder stopped")
}
