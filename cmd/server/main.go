// Command server runs the rinnsal streaming text service.
//
// Configuration is read from a YAML file (see pkg/config) with RINNSAL_*
// environment overrides:
//
//	RINNSAL_PORT         - Listen port (default: 8080)
//	RINNSAL_SOURCE       - Text source: "fixed" or "echo" (default: "fixed")
//	RINNSAL_DELAY        - Pacing delay between chunks (default: 200ms)
//	RINNSAL_ON_CONFLICT  - Request id collision policy: "replace" or "reject"
//	RINNSAL_STORAGE      - History storage: "none", "memory" or "postgres"
//	RINNSAL_POSTGRES_DSN - PostgreSQL connection string
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/rhuss/rinnsal/pkg/config"
	"github.com/rhuss/rinnsal/pkg/debug"
	"github.com/rhuss/rinnsal/pkg/observability"
	"github.com/rhuss/rinnsal/pkg/session"
	"github.com/rhuss/rinnsal/pkg/storage/memory"
	"github.com/rhuss/rinnsal/pkg/storage/postgres"
	"github.com/rhuss/rinnsal/pkg/textsource"
	"github.com/rhuss/rinnsal/pkg/transport"
	transporthttp "github.com/rhuss/rinnsal/pkg/transport/http"
	"github.com/rhuss/rinnsal/pkg/transport/ws"
)

// Options are the command line flags.
type Options struct {
	Config string `short:"c" long:"config" description:"path to the YAML config file"`
	Port   int    `short:"p" long:"port" description:"listen port, overrides the config file"`
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func parseOptions(args []string) (*Options, error) {
	opts := &Options{}
	parser := flags.NewParser(opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	return opts, nil
}

func run(opts *Options) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.Port != 0 {
		cfg.Server.Port = opts.Port
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	debug.Init(cfg.Logging.Debug, cfg.Logging.Level, cfg.Logging.Format)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	adapter, err := newAdapter(cfg, store, logger)
	if err != nil {
		return err
	}

	srv := transporthttp.NewServer(adapter.Handler(),
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithReadTimeout(cfg.Server.ReadTimeout),
		transporthttp.WithWriteTimeout(cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithLogger(logger),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	if store != nil && cfg.Storage.HealthInterval > 0 {
		g.Go(func() error {
			return watchStore(gctx, store, cfg.Storage.HealthInterval, logger)
		})
	}
	return g.Wait()
}

// watchStore checks store health every interval until ctx is done and
// publishes the result as the storage health gauge. Only changes are logged.
func watchStore(ctx context.Context, store session.HistoryStore, interval time.Duration, logger *slog.Logger) error {
	healthy := true
	check := func() {
		checkCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()

		err := store.HealthCheck(checkCtx)
		if ctx.Err() != nil {
			return
		}
		switch {
		case err != nil:
			observability.StorageHealthy.Set(0)
			if healthy {
				logger.Warn("storage unhealthy", "error", err)
			}
			healthy = false
		default:
			observability.StorageHealthy.Set(1)
			if !healthy {
				logger.Info("storage healthy again")
			}
			healthy = true
		}
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			check()
		}
	}
}

// newAdapter wires the text source, session manager and transports into
// one HTTP adapter.
func newAdapter(cfg *config.Config, store session.HistoryStore, logger *slog.Logger) (*transporthttp.Adapter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	src, err := textsource.New(textsource.Config{
		Kind:      cfg.Generation.Source,
		Content:   cfg.Generation.Content,
		Tokenizer: cfg.Generation.Tokenizer,
		Delay:     cfg.Generation.Delay,
	})
	if err != nil {
		return nil, fmt.Errorf("creating text source: %w", err)
	}

	mopts := []session.Option{session.WithLogger(logger)}
	if store != nil {
		mopts = append(mopts, session.WithStore(store))
	}
	manager := session.NewManager(src, session.Config{
		OnConflict: session.ConflictPolicy(cfg.Generation.OnConflict),
		SendDone:   cfg.Generation.SendDone,
		Timeout:    cfg.Generation.Timeout,
	}, mopts...)

	handler := transport.DefaultChain(transport.Logging(logger))(transport.NewSessionHandler(manager))

	adapter := transporthttp.NewAdapter(manager, handler, store, transporthttp.Config{
		SSE:    cfg.Transport.SSE.Enabled,
		Logger: logger,
	})

	if cfg.Transport.WS.Enabled {
		adapter.Mount("GET "+cfg.Transport.WS.Path, ws.NewHandler(handler, wsConfig(cfg.Transport.WS), logger))
		logger.Info("push channel enabled", "path", cfg.Transport.WS.Path)
	}

	if cfg.Observability.Metrics.Enabled {
		adapter.Mount("GET "+cfg.Observability.Metrics.Path, promhttp.Handler())
		logger.Info("metrics enabled", "path", cfg.Observability.Metrics.Path)
	}

	return adapter, nil
}

func wsConfig(cfg config.WSConfig) ws.Config {
	return ws.Config{
		GenerateRate:   cfg.GenerateRate,
		GenerateBurst:  cfg.GenerateBurst,
		ReadLimit:      cfg.ReadLimit,
		WriteTimeout:   cfg.WriteTimeout,
		OriginPatterns: cfg.OriginPatterns,
	}
}

// newStore creates the configured history store, or nil for "none".
func newStore(ctx context.Context, cfg config.StorageConfig) (session.HistoryStore, error) {
	switch cfg.Type {
	case "none":
		slog.Info("storage disabled")
		return nil, nil
	case "memory", "":
		slog.Info("storage enabled", "type", "memory", "max_size", cfg.MaxSize)
		return memory.New(cfg.MaxSize), nil
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("creating postgres store: %w", err)
		}
		slog.Info("storage enabled", "type", "postgres")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
