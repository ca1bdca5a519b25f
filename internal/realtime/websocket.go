package realtime

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const maxInboundMessage = 512

// frame is the envelope of every server-to-client WebSocket message.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WSConn is a presence.Connection over a gorilla WebSocket.
type WSConn struct {
	*outbox
	ws           *websocket.Conn
	writeTimeout time.Duration
	pingInterval time.Duration
}

func newWSConn(ws *websocket.Conn, opts Options) *WSConn {
	return &WSConn{
		outbox:       newOutbox(opts.SendBuffer),
		ws:           ws,
		writeTimeout: opts.WriteTimeout,
		pingInterval: opts.PingInterval,
	}
}

// Run pumps messages until the client goes away or Close is called.
func (c *WSConn) Run() {
	go c.readPump()
	c.writePump()
}

// readPump only consumes control frames and detects disconnects; clients
// have nothing to say on this socket.
func (c *WSConn) readPump() {
	defer c.Close()

	c.ws.SetReadLimit(maxInboundMessage)
	pongWait := c.pingInterval * 2
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *WSConn) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.queue:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteJSON(frame{Event: msg.event, Data: msg.payload}); err != nil {
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(c.writeTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-c.done:
			deadline := time.Now().Add(c.writeTimeout)
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), deadline)
			return
		}
	}
}
