package realtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// SSEConn is a presence.Connection over a text/event-stream response.
type SSEConn struct {
	*outbox
	res       *echo.Response
	heartbeat time.Duration
}

func newSSEConn(res *echo.Response, opts Options) *SSEConn {
	return &SSEConn{
		outbox:    newOutbox(opts.SendBuffer),
		res:       res,
		heartbeat: opts.PingInterval,
	}
}

// Run streams events until ctx ends, a write fails or Close is called.
func (c *SSEConn) Run(ctx context.Context) {
	defer c.Close()

	h := c.res.Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set(echo.HeaderCacheControl, "no-cache")
	h.Set(echo.HeaderConnection, "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.res.WriteHeader(http.StatusOK)

	if !c.write(": ok\n\n") {
		return
	}

	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			if !c.write(": ping\n\n") {
				return
			}
		case msg := <-c.queue:
			if !c.write(fmt.Sprintf("event: %s\ndata: %s\n\n", msg.event, msg.payload)) {
				return
			}
		}
	}
}

func (c *SSEConn) write(chunk string) bool {
	if _, err := c.res.Write([]byte(chunk)); err != nil {
		return false
	}
	c.res.Flush()
	return true
}
