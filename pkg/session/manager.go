package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rhuss/rinnsal/pkg/api"
	"github.com/rhuss/rinnsal/pkg/debug"
	"github.com/rhuss/rinnsal/pkg/observability"
	"github.com/rhuss/rinnsal/pkg/textsource"
)

// ConflictPolicy decides what happens when generate is called with a
// request id that is still registered.
type ConflictPolicy string

const (
	// ConflictReplace overwrites the registry entry. The earlier session
	// keeps running but can no longer be cancelled by id.
	ConflictReplace ConflictPolicy = "replace"

	// ConflictReject fails the second generate call with ErrConflict.
	ConflictReject ConflictPolicy = "reject"
)

// ErrConflict is returned by Generate under ConflictReject when the request
// id is already bound to a live session.
var ErrConflict = errors.New("request id is already in use")

// Config holds session behavior settings.
type Config struct {
	OnConflict ConflictPolicy

	// SendDone sends a done notice after natural completion.
	SendDone bool

	// Timeout cancels a session automatically once it has run this long.
	// Zero disables the deadline.
	Timeout time.Duration

	// StoreTimeout bounds how long saving a history record may take
	// (default: 5s).
	StoreTimeout time.Duration
}

// Manager runs generation sessions against a text source.
type Manager struct {
	source   textsource.Source
	registry *Registry
	store    HistoryStore
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithRegistry shares an existing registry instead of creating one.
func WithRegistry(r *Registry) Option {
	return func(m *Manager) { m.registry = r }
}

// WithStore records finished sessions in s.
func WithStore(s HistoryStore) Option {
	return func(m *Manager) { m.store = s }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager streaming from source.
func NewManager(source textsource.Source, cfg Config, opts ...Option) *Manager {
	if cfg.OnConflict == "" {
		cfg.OnConflict = ConflictReplace
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}

	m := &Manager{
		source: source,
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = NewRegistry()
	}
	return m
}

// Registry returns the registry shared by all sessions of this manager.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Generate runs one cancellable session for requestID, sending each chunk to
// sink. It blocks until the session ends. Completed and cancelled sessions
// return nil; a non-nil error means the sink failed or, under
// ConflictReject, that requestID was already in use.
func (m *Manager) Generate(ctx context.Context, requestID, prompt string, sink Sink) error {
	if requestID == "" {
		return api.NewInvalidRequestError("request_id", "request_id is required")
	}

	origin := OriginFromContext(ctx)
	logger := m.logger.With(
		slog.String("request_id", requestID),
		slog.String("connection_id", origin.ConnectionID),
		slog.String("transport", origin.Transport),
	)

	h := NewHandle(ctx)
	defer h.release()

	if !m.register(requestID, h, logger) {
		return ErrConflict
	}
	notifyRegistered(ctx)
	defer func() {
		m.registry.RemoveHandle(requestID, h)
		observability.RegistryEntries.Set(float64(m.registry.Len()))
	}()

	run := m.begin(origin, requestID, prompt, logger)
	defer m.armTimeout(h, logger)()

	var sendErr error
	for text := range m.source.Stream(h.Context(), prompt) {
		if err := sink.Send(ctx, api.NewChunkMessage(requestID, text)); err != nil {
			sendErr = fmt.Errorf("sending chunk: %w", err)
			break
		}
		run.chunk()
	}

	state := outcome(ctx, h, sendErr)
	switch {
	case state == api.SessionStateCancelled && h.CancelRequested():
		if err := sink.Send(ctx, api.NewCancelledMessage(requestID)); err != nil {
			logger.Warn("cancellation notice not delivered", slog.String("error", err.Error()))
		}
	case state == api.SessionStateCompleted && m.cfg.SendDone:
		if err := sink.Send(ctx, api.NewDoneMessage(requestID)); err != nil {
			logger.Warn("done notice not delivered", slog.String("error", err.Error()))
		}
	}

	m.end(ctx, run, state)
	return sendErr
}

// Cancel signals the session registered under requestID. If one was found,
// a cancel_ack is sent to sink (which may be nil). The entry is removed
// either way, so a stale cancel never leaves a row behind, and removal
// happens before the ack so a session that reuses the id meanwhile keeps
// its entry. Unknown ids are a benign miss.
func (m *Manager) Cancel(ctx context.Context, requestID string, sink Sink) bool {
	found := m.registry.SignalAndRemove(requestID)
	observability.RegistryEntries.Set(float64(m.registry.Len()))
	if found {
		observability.CancelRequestsTotal.WithLabelValues("hit").Inc()
		if sink != nil {
			if err := sink.Send(ctx, api.NewCancelAckMessage(requestID)); err != nil {
				m.logger.Warn("cancel acknowledgment not delivered",
					slog.String("request_id", requestID),
					slog.String("error", err.Error()),
				)
			}
		}
	} else {
		observability.CancelRequestsTotal.WithLabelValues("miss").Inc()
		debug.Log("registry", "cancel for unknown request id", "request_id", requestID)
	}

	return found
}

// Stream runs a one-shot session with no request id and no registry entry.
// It ends when the source is exhausted or ctx is done (peer disconnect),
// and returns the terminal state. A non-nil error means emit failed.
func (m *Manager) Stream(ctx context.Context, prompt string, emit func(api.Chunk) error) (api.SessionState, error) {
	origin := OriginFromContext(ctx)
	logger := m.logger.With(
		slog.String("connection_id", origin.ConnectionID),
		slog.String("transport", origin.Transport),
	)

	h := NewHandle(ctx)
	defer h.release()

	run := m.begin(origin, origin.ConnectionID, prompt, logger)
	defer m.armTimeout(h, logger)()

	var emitErr error
	for text := range m.source.Stream(h.Context(), prompt) {
		if err := emit(api.Chunk{Text: text}); err != nil {
			emitErr = fmt.Errorf("emitting chunk: %w", err)
			break
		}
		run.chunk()
	}

	state := outcome(ctx, h, emitErr)
	m.end(ctx, run, state)
	return state, emitErr
}

// register binds h to requestID according to the conflict policy.
func (m *Manager) register(requestID string, h *Handle, logger *slog.Logger) bool {
	defer func() { observability.RegistryEntries.Set(float64(m.registry.Len())) }()

	if m.cfg.OnConflict == ConflictReject {
		if !m.registry.RegisterIfAbsent(requestID, h) {
			logger.Info("generate rejected: request id in use")
			return false
		}
		return true
	}

	if prev := m.registry.Register(requestID, h); prev != nil && prev.State() != HandleCompleted {
		logger.Warn("request id reused; earlier session can no longer be cancelled")
	}
	return true
}

// armTimeout schedules an automatic cancel after the configured deadline
// and returns the function that disarms it.
func (m *Manager) armTimeout(h *Handle, logger *slog.Logger) func() {
	if m.cfg.Timeout <= 0 {
		return func() {}
	}
	t := time.AfterFunc(m.cfg.Timeout, func() {
		if h.Cancel() {
			logger.Info("generation deadline reached", slog.Duration("timeout", m.cfg.Timeout))
		}
	})
	return func() { t.Stop() }
}

// outcome decides the terminal state once the chunk loop has exited.
func outcome(ctx context.Context, h *Handle, sendErr error) api.SessionState {
	if sendErr != nil {
		h.finish()
		if ctx.Err() != nil {
			return api.SessionStateCancelled
		}
		return api.SessionStateFailed
	}
	if !h.finish() {
		// Cancel won the race against completion.
		return api.SessionStateCancelled
	}
	if ctx.Err() != nil {
		// Peer went away or the server is shutting down.
		return api.SessionStateCancelled
	}
	return api.SessionStateCompleted
}

// sessionRun accumulates the record of one session.
type sessionRun struct {
	rec    api.GenerationRecord
	logger *slog.Logger
}

func (m *Manager) begin(origin Origin, requestID, prompt string, logger *slog.Logger) *sessionRun {
	run := &sessionRun{
		rec: api.GenerationRecord{
			RequestID:    requestID,
			ConnectionID: origin.ConnectionID,
			Transport:    origin.Transport,
			Prompt:       prompt,
			StartedAt:    m.now(),
		},
		logger: logger,
	}
	run.advance(api.SessionStateCreated)
	run.advance(api.SessionStateActive)

	observability.SessionsActive.WithLabelValues(origin.Transport).Inc()
	debug.Log("session", "generation started", "request_id", requestID, "prompt", debug.Truncate(prompt, 80))
	return run
}

func (r *sessionRun) advance(to api.SessionState) {
	if err := api.ValidateSessionTransition(r.rec.State, to); err != nil {
		r.logger.Error("invalid session transition", slog.String("error", err.Error()))
		return
	}
	r.rec.State = to
}

func (r *sessionRun) chunk() {
	r.rec.Chunks++
	observability.ChunksEmittedTotal.WithLabelValues(r.rec.Transport).Inc()
	debug.Log("session", "chunk sent", "request_id", r.rec.RequestID, "index", r.rec.Chunks)
}

func (m *Manager) end(ctx context.Context, run *sessionRun, state api.SessionState) {
	run.advance(state)
	run.rec.FinishedAt = m.now()
	rec := run.rec

	observability.SessionsActive.WithLabelValues(rec.Transport).Dec()
	observability.SessionsFinishedTotal.WithLabelValues(rec.Transport, string(rec.State)).Inc()
	observability.SessionDuration.WithLabelValues(rec.Transport, string(rec.State)).Observe(rec.Duration().Seconds())

	run.logger.Info("generation finished",
		slog.String("state", string(rec.State)),
		slog.Int("chunks", rec.Chunks),
		slog.Duration("duration", rec.Duration()),
	)

	if m.store == nil {
		return
	}
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.StoreTimeout)
	defer cancel()
	if err := m.store.SaveRecord(storeCtx, &rec); err != nil {
		run.logger.Error("saving generation record", slog.String("error", err.Error()))
	}
}
