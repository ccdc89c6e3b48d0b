package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/time/rate"

	"github.com/rhuss/rinnsal/pkg/api"
	"github.com/rhuss/rinnsal/pkg/debug"
	"github.com/rhuss/rinnsal/pkg/observability"
	"github.com/rhuss/rinnsal/pkg/session"
	"github.com/rhuss/rinnsal/pkg/transport"
)

// connection is one accepted WebSocket. It is the session.Sink for every
// command read from it.
type connection struct {
	conn         *websocket.Conn
	id           string
	handler      transport.Handler
	limiter      *rate.Limiter // nil = unlimited
	writeTimeout time.Duration
	logger       *slog.Logger

	writeMu sync.Mutex // keeps Send calls in order on this connection
	wg      sync.WaitGroup
}

var _ session.Sink = (*connection)(nil)

// Send writes msg as one JSON text frame.
func (c *connection) Send(ctx context.Context, msg api.ServerMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if debug.TraceIsEnabled("ws") {
		debug.Trace("ws", "frame out", "connection_id", c.id, "type", msg.Type, "request_id", msg.RequestID)
	}

	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, msg)
}

// serve runs the read loop until the peer goes away, then stops the
// connection's generations and waits for them.
func (c *connection) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	observability.StreamingConnections.WithLabelValues(TransportName).Inc()
	defer observability.StreamingConnections.WithLabelValues(TransportName).Dec()

	err := c.readLoop(ctx)

	cancel()
	c.wg.Wait()

	switch status := websocket.CloseStatus(err); {
	case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
		c.conn.Close(websocket.StatusNormalClosure, "")
	case errors.Is(err, context.Canceled):
		c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	default:
		c.logger.Debug("websocket read ended", slog.String("error", err.Error()))
		c.conn.CloseNow()
	}
}

// readLoop decodes inbound frames and dispatches them. It returns the
// error that ended the connection.
func (c *connection) readLoop(ctx context.Context) error {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return err
		}

		if typ != websocket.MessageText {
			c.reply(ctx, "", api.NewInvalidRequestError("", "only text frames are supported"))
			continue
		}

		var msg api.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(ctx, "", api.NewInvalidRequestError("", "malformed JSON message"))
			continue
		}

		if debug.TraceIsEnabled("ws") {
			debug.Trace("ws", "frame in", "connection_id", c.id, "raw", debug.Truncate(string(data), 200))
		}

		c.dispatch(ctx, &msg)
	}
}

// dispatch runs a generate in its own goroutine and everything else
// inline, so a cancel never waits behind a running generation.
func (c *connection) dispatch(ctx context.Context, msg *api.ClientMessage) {
	if msg.Type != api.MessageGenerate {
		c.run(ctx, msg)
		return
	}

	if c.limiter != nil && !c.limiter.Allow() {
		observability.RateLimitRejectedTotal.WithLabelValues(TransportName).Inc()
		c.reply(ctx, msg.RequestID, api.NewTooManyRequestsError("generate rate limit exceeded"))
		return
	}

	// Hold the read loop until the session is registered, so a cancel
	// that follows on this connection always finds it.
	ready := make(chan struct{})
	var once sync.Once
	signal := func() { once.Do(func() { close(ready) }) }

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer signal()
		c.run(session.ContextWithRegistered(ctx, signal), msg)
	}()
	<-ready
}

func (c *connection) run(ctx context.Context, msg *api.ClientMessage) {
	err := c.handler.Handle(ctx, msg, c)
	if err == nil || ctx.Err() != nil {
		return
	}
	c.reply(ctx, msg.RequestID, transport.AsAPIError(err))
}

// reply pushes an error message. Failures are only logged: the read loop
// notices a dead connection on its own.
func (c *connection) reply(ctx context.Context, requestID string, apiErr *api.APIError) {
	if err := c.Send(ctx, api.NewErrorMessage(requestID, apiErr)); err != nil {
		c.logger.Debug("error message not delivered",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
	}
}
