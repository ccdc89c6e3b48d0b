package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rhuss/rinnsal/pkg/api"
	"github.com/rhuss/rinnsal/pkg/debug"
	"github.com/rhuss/rinnsal/pkg/observability"
	"github.com/rhuss/rinnsal/pkg/session"
	"github.com/rhuss/rinnsal/pkg/storage"
	"github.com/rhuss/rinnsal/pkg/transport"
)

// Transport names recorded on sessions started by this adapter.
const (
	TransportHTTP = "http"
	TransportSSE  = "sse"
)

// ConnectionIDHeader carries the connection id assigned to each request.
// A well-formed client value is reused.
const ConnectionIDHeader = "X-Connection-ID"

// maxConnectionIDLen bounds client-supplied connection ids.
const maxConnectionIDLen = 128

// Adapter serves the one-shot SSE stream, the HTTP cancel endpoint and the
// generation history endpoints.
type Adapter struct {
	manager *session.Manager
	handler transport.Handler
	store   session.HistoryStore // nil if no history is kept
	mux     *http.ServeMux
	config  Config
	logger  *slog.Logger
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	// SSE enables GET /v1/stream.
	SSE bool

	Logger *slog.Logger
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{SSE: true}
}

// NewAdapter creates an HTTP adapter. Cancel requests go through handler so
// they pass the same middleware as push-channel commands; the store is
// optional and history endpoints answer 501 without one.
func NewAdapter(manager *session.Manager, handler transport.Handler, store session.HistoryStore, cfg Config) *Adapter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Adapter{
		manager: manager,
		handler: handler,
		store:   store,
		mux:     http.NewServeMux(),
		config:  cfg,
		logger:  logger,
	}

	if cfg.SSE {
		a.mux.HandleFunc("GET /v1/stream", a.handleStream)
	}
	a.mux.HandleFunc("DELETE /v1/generations/{id}", a.handleCancel)
	a.mux.HandleFunc("GET /v1/generations/{id}", a.handleGetRecord)
	a.mux.HandleFunc("GET /v1/generations", a.handleListRecords)
	a.mux.HandleFunc("GET /healthz", a.handleHealth)

	return a
}

// Mount registers an additional handler, such as the WebSocket endpoint or
// the metrics exporter, on the adapter's mux.
func (a *Adapter) Mount(pattern string, h http.Handler) {
	a.mux.Handle(pattern, h)
}

// Handler returns the http.Handler for this adapter, wrapped with request
// metrics and connection id propagation.
func (a *Adapter) Handler() http.Handler {
	// Metrics sit next to the mux so they see the matched pattern.
	return connectionIDMiddleware(observability.MetricsMiddleware(a.mux))
}

// connectionIDMiddleware assigns every request a connection id, echoes it in
// the response headers and stores it as the session origin.
func connectionIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(ConnectionIDHeader)
		if id == "" || len(id) > maxConnectionIDLen {
			id = api.NewConnectionID()
		}
		w.Header().Set(ConnectionIDHeader, id)

		ctx := session.ContextWithOrigin(r.Context(), session.Origin{
			Transport:    TransportHTTP,
			ConnectionID: id,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// handleStream handles GET /v1/stream. The stream ends with [DONE] when the
// source is exhausted; a peer disconnect stops it without a sentinel.
func (a *Adapter) handleStream(w http.ResponseWriter, r *http.Request) {
	prompt := r.URL.Query().Get("prompt")
	if apiErr := api.ValidatePrompt(prompt); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	origin := session.OriginFromContext(r.Context())
	origin.Transport = TransportSSE
	ctx := session.ContextWithOrigin(r.Context(), origin)

	sw := newSSEWriter(w)
	// A server write timeout would otherwise cut long streams.
	_ = sw.rc.SetWriteDeadline(time.Time{})

	gauge := observability.StreamingConnections.WithLabelValues(TransportSSE)
	gauge.Inc()
	defer gauge.Dec()

	if err := sw.Open(); err != nil {
		debug.Log("sse", "open failed", "connection_id", origin.ConnectionID, "error", err)
		return
	}

	state, err := a.manager.Stream(ctx, prompt, sw.WriteChunk)
	switch state {
	case api.SessionStateCompleted:
		if err := sw.Done(); err != nil {
			debug.Log("sse", "writing sentinel failed", "connection_id", origin.ConnectionID, "error", err)
		}
	default:
		debug.Log("sse", "stream stopped",
			"connection_id", origin.ConnectionID,
			"state", state,
			"chunks", sw.Chunks(),
			"error", err,
		)
	}
}

// cancelResponse is the body of a DELETE /v1/generations/{id} reply.
type cancelResponse struct {
	RequestID string `json:"request_id"`
	Cancelled bool   `json:"cancelled"`
}

// handleCancel handles DELETE /v1/generations/{id}. An unknown id is a
// benign miss reported as cancelled=false.
func (a *Adapter) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var acked bool
	sink := session.SinkFunc(func(_ context.Context, msg api.ServerMessage) error {
		if msg.Type == api.MessageCancelAck && msg.RequestID == id {
			acked = true
		}
		return nil
	})

	msg := &api.ClientMessage{Type: api.MessageCancel, RequestID: id}
	if err := a.handler.Handle(r.Context(), msg, sink); err != nil {
		transport.WriteAPIError(w, transport.AsAPIError(err))
		return
	}

	writeJSON(w, http.StatusOK, cancelResponse{RequestID: id, Cancelled: acked})
}

// handleGetRecord handles GET /v1/generations/{id}.
func (a *Adapter) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		a.writeNoStore(w, "record retrieval")
		return
	}

	id := r.PathValue("id")
	rec, err := a.store.GetRecord(r.Context(), id)
	if err != nil {
		a.writeStoreError(w, id, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleListRecords handles GET /v1/generations.
func (a *Adapter) handleListRecords(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		a.writeNoStore(w, "record listing")
		return
	}

	limit, apiErr := parseLimit(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	recs, err := a.store.ListRecords(r.Context(), storage.NormalizeLimit(limit))
	if err != nil {
		a.writeStoreError(w, "", err)
		return
	}
	if recs == nil {
		recs = []*api.GenerationRecord{}
	}

	writeJSON(w, http.StatusOK, api.RecordList{Object: "list", Data: recs})
}

type healthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage,omitempty"`
}

// handleHealth handles GET /healthz.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.store.HealthCheck(ctx); err != nil {
		a.logger.Warn("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Storage: "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Storage: "ok"})
}

// parseLimit extracts the optional limit query parameter. Zero means the
// store default.
func parseLimit(r *http.Request) (int, *api.APIError) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(s)
	if err != nil || limit < 1 {
		return 0, api.NewInvalidRequestError("limit", "limit must be a positive integer")
	}
	return limit, nil
}

func (a *Adapter) writeNoStore(w http.ResponseWriter, what string) {
	transport.WriteErrorResponse(w,
		api.NewInvalidRequestError("", what+" is not available (no store configured)"),
		http.StatusNotImplemented,
	)
}

func (a *Adapter) writeStoreError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		transport.WriteAPIError(w, api.NewNotFoundError("generation "+id+" not found"))
		return
	}
	a.logger.Error("history store failed", slog.String("error", err.Error()))
	transport.WriteAPIError(w, transport.AsAPIError(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
