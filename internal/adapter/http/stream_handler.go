package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"credhealth/internal/adapter/middleware"
	"credhealth/internal/domain/user"
	"credhealth/internal/relay"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Subscriber is the read side of the notification relay.
type Subscriber interface {
	Subscribe(ctx context.Context) <-chan relay.Event
}

// StreamHandler serves loan status changes as server-sent events.
type StreamHandler struct {
	events    Subscriber
	logger    *zap.Logger
	heartbeat time.Duration
}

func NewStreamHandler(events Subscriber, heartbeat time.Duration, logger *zap.Logger) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &StreamHandler{events: events, logger: nopIfNil(logger), heartbeat: heartbeat}
}

// LoanEvents streams every status change published while the client stays connected.
// ?loan_id= narrows the stream to one loan.
func (h *StreamHandler) LoanEvents(c echo.Context) error {
	caller := middleware.CallerFrom(c)
	if !caller.Authenticated() {
		return respondError(c, h.logger, user.ErrUnauthenticated)
	}
	only := c.QueryParam("loan_id")

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	ch := h.events.Subscribe(ctx)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	h.logger.Debug("event stream opened", zap.String("user_id", caller.UserID))
	defer h.logger.Debug("event stream closed", zap.String("user_id", caller.UserID))

	tick := time.NewTicker(h.heartbeat)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			if only != "" && evt.Loan.LoanID != only {
				continue
			}
			if err := writeEvent(res, evt); err != nil {
				h.logger.Debug("event stream write failed", zap.Error(err))
				return nil
			}
			res.Flush()
		}
	}
}

func writeEvent(res *echo.Response, evt relay.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(res, "id: %s\nevent: %s\ndata: %s\n\n", evt.Loan.LoanID, evt.Type, data)
	return err
}
