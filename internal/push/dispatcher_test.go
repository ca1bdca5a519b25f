package push

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/notifier/internal/activity"
	"github.com/anonto42/nano-midea/notifier/internal/auth"
	"github.com/anonto42/nano-midea/notifier/internal/models"
	"github.com/anonto42/nano-midea/notifier/internal/presence"
	"github.com/anonto42/nano-midea/notifier/pkg/logger"
	"github.com/anonto42/nano-midea/notifier/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureConn struct {
	id   string
	err  error
	mu   sync.Mutex
	sent [][]byte
}

func (c *captureConn) ID() string { return c.id }

func (c *captureConn) Send(event string, payload []byte) error {
	if c.err != nil {
		return c.err
	}
	if event != EventName {
		return errors.New("unexpected event " + event)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, payload)
	return nil
}

func (c *captureConn) Close() {}

func (c *captureConn) messages() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

func likeEvent() activity.Committed {
	postID := "post-1"
	return activity.Committed{
		Notification: &models.Notification{
			ID:        "n-1",
			Type:      models.NotificationLike,
			UserID:    "alice",
			ActorID:   "bob",
			PostID:    &postID,
			CreatedAt: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		},
		Actor: &models.User{ID: "bob", Username: "bob", Image: "https://cdn.example.com/bob.png"},
		Post:  &models.Post{ID: postID, AuthorID: "alice", Content: "hello"},
	}
}

func TestDeliversToEveryConnection(t *testing.T) {
	reg := presence.NewRegistry(nil)
	phone, laptop := &captureConn{id: "phone"}, &captureConn{id: "laptop"}
	other := &captureConn{id: "other"}
	_, _ = reg.Register(auth.Authenticated{UserID: "alice"}, phone)
	_, _ = reg.Register(auth.Authenticated{UserID: "alice"}, laptop)
	_, _ = reg.Register(auth.Authenticated{UserID: "carol"}, other)

	d := NewDispatcher(reg, nil, logger.Nop())
	d.OnCommitted(likeEvent())
	d.Wait()

	for _, c := range []*captureConn{phone, laptop} {
		msgs := c.messages()
		require.Len(t, msgs, 1, c.id)

		var got Payload
		require.NoError(t, json.Unmarshal(msgs[0], &got))
		assert.Equal(t, models.NotificationLike, got.Type)
		assert.Equal(t, models.UserCompact{ID: "bob", Username: "bob", Image: "https://cdn.example.com/bob.png"}, got.Actor)
		require.NotNil(t, got.Post)
		assert.Equal(t, PostSummary{ID: "post-1", Content: "hello"}, *got.Post)
	}
	assert.Empty(t, other.messages())
}

func TestFailingConnectionDoesNotAffectOthers(t *testing.T) {
	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)
	reg := presence.NewRegistry(m)
	broken := &captureConn{id: "broken", err: errors.New("write: broken pipe")}
	healthy := &captureConn{id: "healthy"}
	_, _ = reg.Register(auth.Authenticated{UserID: "alice"}, broken)
	_, _ = reg.Register(auth.Authenticated{UserID: "alice"}, healthy)

	d := NewDispatcher(reg, m, logger.Nop())
	d.OnCommitted(likeEvent())
	d.Wait()

	assert.Len(t, healthy.messages(), 1)
	assert.Equal(t, 1.0, deliveries(t, promReg, metrics.DeliveryDelivered))
	assert.Equal(t, 1.0, deliveries(t, promReg, metrics.DeliveryFailed))
}

func deliveries(t *testing.T, reg *prometheus.Registry, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "notifier_push_deliveries_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "result" && l.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestNoNotificationIsNoop(t *testing.T) {
	reg := presence.NewRegistry(nil)
	c := &captureConn{id: "c"}
	_, _ = reg.Register(auth.Authenticated{UserID: "alice"}, c)

	d := NewDispatcher(reg, nil, logger.Nop())
	d.OnCommitted(activity.Committed{})
	d.Wait()
	assert.Empty(t, c.messages())
}

func TestOfflineRecipient(t *testing.T) {
	d := NewDispatcher(presence.NewRegistry(nil), nil, logger.Nop())
	d.OnCommitted(likeEvent())
	d.Wait()
}

func TestFollowPayloadOmitsPost(t *testing.T) {
	event := activity.Committed{
		Notification: &models.Notification{ID: "n-2", Type: models.NotificationFollow, UserID: "alice", ActorID: "bob"},
		Actor:        &models.User{ID: "bob", Username: "bob"},
	}

	raw, err := json.Marshal(NewPayload(event))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "FOLLOW", body["type"])
	assert.NotContains(t, body, "post")
	assert.Equal(t, map[string]any{"id": "bob", "username": "bob", "image": ""}, body["actor"])
}
