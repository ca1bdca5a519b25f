// Package push delivers committed notifications to recipients' live connections.
package push

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/anonto42/nano-midea/notifier/internal/activity"
	"github.com/anonto42/nano-midea/notifier/internal/models"
	"github.com/anonto42/nano-midea/notifier/internal/presence"
	pkgerrors "github.com/anonto42/nano-midea/notifier/pkg/errors"
	"github.com/anonto42/nano-midea/notifier/pkg/logger"
	"github.com/anonto42/nano-midea/notifier/pkg/metrics"
)

// EventName is the event every notification is sent under.
const EventName = "notification"

// Payload is the wire body of a notification event.
type Payload struct {
	ID        string                  `json:"id"`
	Type      models.NotificationType `json:"type"`
	Actor     models.UserCompact      `json:"actor"`
	Post      *PostSummary            `json:"post,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

type PostSummary struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// NewPayload builds the wire body for a committed notification.
func NewPayload(event activity.Committed) Payload {
	n := event.Notification
	p := Payload{ID: n.ID, Type: n.Type, CreatedAt: n.CreatedAt}
	if event.Actor != nil {
		p.Actor = event.Actor.ToCompact()
	} else {
		p.Actor = models.UserCompact{ID: n.ActorID}
	}
	if n.PostID != nil {
		p.Post = &PostSummary{ID: *n.PostID}
		if event.Post != nil && event.Post.ID == *n.PostID {
			p.Post.Content = event.Post.Content
		}
	}
	return p
}

type connections interface {
	ConnectionsFor(userID string) []presence.Connection
}

// Dispatcher fans committed notifications out to live connections. Delivery is
// best effort: failures are logged and counted, never returned.
type Dispatcher struct {
	conns   connections
	metrics *metrics.Metrics
	logg    *logger.Logger
	wg      sync.WaitGroup
}

var _ activity.Publisher = (*Dispatcher)(nil)

func NewDispatcher(conns connections, m *metrics.Metrics, logg *logger.Logger) *Dispatcher {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Dispatcher{conns: conns, metrics: m, logg: logg}
}

// OnCommitted schedules delivery and returns immediately.
func (d *Dispatcher) OnCommitted(event activity.Committed) {
	if event.Notification == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(event)
	}()
}

// Wait blocks until every scheduled delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(event activity.Committed) {
	n := event.Notification
	ctx := d.logg.WithFields(context.Background(), map[string]any{
		"notification_id": n.ID,
		"recipient_id":    n.UserID,
		"type":            string(n.Type),
	})

	targets := d.conns.ConnectionsFor(n.UserID)
	if len(targets) == 0 {
		d.logg.Debug(ctx, "recipient offline, skipping push")
		return
	}

	payload, err := json.Marshal(NewPayload(event))
	if err != nil {
		d.logg.Error(ctx, "encoding push payload", err)
		return
	}

	var wg sync.WaitGroup
	for _, c := range targets {
		wg.Add(1)
		go func(c presence.Connection) {
			defer wg.Done()
			if err := c.Send(EventName, payload); err != nil {
				d.metrics.IncDelivery(metrics.DeliveryFailed)
				d.logg.Warn(d.logg.WithField(ctx, "connection_id", c.ID()), "push delivery failed",
					pkgerrors.Wrap(pkgerrors.CodeDeliveryFailed, err, "send"))
				return
			}
			d.metrics.IncDelivery(metrics.DeliveryDelivered)
		}(c)
	}
	wg.Wait()
}
