package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/time/rate"

	"github.com/rhuss/rinnsal/pkg/api"
	"github.com/rhuss/rinnsal/pkg/debug"
	"github.com/rhuss/rinnsal/pkg/session"
	"github.com/rhuss/rinnsal/pkg/transport"
)

// TransportName labels sessions, logs and metrics from this transport.
const TransportName = "ws"

// Config holds push-channel settings.
type Config struct {
	// GenerateRate limits generate commands per second on one connection.
	// Zero disables the limit.
	GenerateRate float64

	// GenerateBurst is the number of generate commands allowed at once
	// (default: 1 when a rate is set).
	GenerateBurst int

	// ReadLimit is the maximum inbound frame size in bytes (default: 128KiB).
	ReadLimit int64

	// WriteTimeout bounds a single frame write (default: 10s).
	WriteTimeout time.Duration

	// OriginPatterns lists extra Origin host patterns accepted in addition
	// to the request's own host.
	OriginPatterns []string
}

func (c *Config) defaults() {
	if c.GenerateRate > 0 && c.GenerateBurst < 1 {
		c.GenerateBurst = 1
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 128 << 10
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
}

// Handler upgrades HTTP requests to WebSocket connections and serves the
// push-channel protocol on them.
type Handler struct {
	handler transport.Handler
	cfg     Config
	logger  *slog.Logger
}

var _ http.Handler = (*Handler)(nil)

// NewHandler creates a Handler dispatching commands to h.
func NewHandler(h transport.Handler, cfg Config, logger *slog.Logger) *Handler {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{handler: h, cfg: cfg, logger: logger}
}

// ServeHTTP implements http.Handler. It blocks for the lifetime of the
// connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Server-wide deadlines would otherwise cut long-lived connections.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.OriginPatterns,
	})
	if err != nil {
		// Accept has already written an error response.
		h.logger.Warn("websocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()),
		)
		return
	}
	conn.SetReadLimit(h.cfg.ReadLimit)

	// Reuse the id assigned by outer HTTP middleware, if any.
	id := session.OriginFromContext(r.Context()).ConnectionID
	if id == "" {
		id = api.NewConnectionID()
	}
	c := &connection{
		conn:         conn,
		id:           id,
		handler:      h.handler,
		writeTimeout: h.cfg.WriteTimeout,
		logger:       h.logger.With(slog.String("connection_id", id)),
	}
	if h.cfg.GenerateRate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(h.cfg.GenerateRate), h.cfg.GenerateBurst)
	}

	debug.Log("ws", "connection opened", "connection_id", id, "remote_addr", r.RemoteAddr)
	ctx := session.ContextWithOrigin(r.Context(), session.Origin{
		Transport:    TransportName,
		ConnectionID: id,
	})
	c.serve(ctx)
	debug.Log("ws", "connection closed", "connection_id", id)
}
