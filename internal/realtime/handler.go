package realtime

import (
	"net/http"
	"time"

	"github.com/anonto42/nano-midea/notifier/internal/auth"
	"github.com/anonto42/nano-midea/notifier/internal/presence"
	"github.com/anonto42/nano-midea/notifier/pkg/logger"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

type Options struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 16
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	return o
}

type registrar interface {
	Register(principal auth.Principal, conn presence.Connection) (string, error)
	Unregister(userID string, conn presence.Connection)
}

// Handler upgrades authenticated requests into live push connections.
type Handler struct {
	verifier auth.Verifier
	registry registrar
	opts     Options
	logg     *logger.Logger
	upgrader websocket.Upgrader
}

func NewHandler(verifier auth.Verifier, registry registrar, opts Options, logg *logger.Logger) *Handler {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Handler{
		verifier: verifier,
		registry: registry,
		opts:     opts.withDefaults(),
		logg:     logg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// principal resolves the caller from the Authorization header or, for
// browsers that cannot set headers on WebSocket/EventSource, the token query param.
func (h *Handler) principal(c echo.Context) (auth.Principal, error) {
	token, ok := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if !ok {
		token = c.QueryParam("token")
	}
	if token == "" {
		return auth.Anonymous{}, nil
	}
	p, err := h.verifier.Verify(c.Request().Context(), token)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// WebSocket handles GET /ws.
func (h *Handler) WebSocket(c echo.Context) error {
	p, err := h.principal(c)
	if err != nil {
		return err
	}
	// Register before upgrading so authentication errors still get an HTTP
	// status. Events queued meanwhile are written once the socket is attached.
	conn := newWSConn(nil, h.opts)
	userID, err := h.registry.Register(p, conn)
	if err != nil {
		return err
	}
	defer h.registry.Unregister(userID, conn)

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		conn.Close()
		h.logg.Warn(c.Request().Context(), "websocket upgrade failed", err)
		return nil
	}
	conn.ws = ws

	ctx := h.logg.WithFields(c.Request().Context(), map[string]any{"user_id": userID, "connection_id": conn.ID()})
	h.logg.Debug(ctx, "websocket connected")
	conn.Run()
	h.logg.Debug(ctx, "websocket disconnected")
	return nil
}

// Stream handles GET /notifications/stream.
func (h *Handler) Stream(c echo.Context) error {
	p, err := h.principal(c)
	if err != nil {
		return err
	}
	conn := newSSEConn(c.Response(), h.opts)
	userID, err := h.registry.Register(p, conn)
	if err != nil {
		return err
	}
	defer h.registry.Unregister(userID, conn)

	ctx := h.logg.WithFields(c.Request().Context(), map[string]any{"user_id": userID, "connection_id": conn.ID()})
	h.logg.Debug(ctx, "event stream opened")
	conn.Run(c.Request().Context())
	h.logg.Debug(ctx, "event stream closed")
	return nil
}
