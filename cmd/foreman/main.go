// Command foreman runs the workflow step dispatch daemon: it polls the
// coordination service for pending steps, executes them against the
// configured LLM providers, and reports results back. Runs 24/7 under
// whatever process supervisor the host uses.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	foreman "github.com/nevindra/foreman"
	"github.com/nevindra/foreman/coord"
	"github.com/nevindra/foreman/internal/config"
	jpostgres "github.com/nevindra/foreman/journal/postgres"
	jsqlite "github.com/nevindra/foreman/journal/sqlite"
	"github.com/nevindra/foreman/observer"
	"github.com/nevindra/foreman/provider/resolve"
	"github.com/nevindra/foreman/tools/search"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// 1. Load config
	cfg := config.Load(os.Getenv("FOREMAN_CONFIG"))
	if cfg.Coordinator.BaseURL == "" || cfg.Coordinator.AdminKey == "" {
		logger.Error("coordinator base_url and admin_key are required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Coordination client + key snapshot
	client := coord.New(cfg.Coordinator.BaseURL, cfg.Coordinator.AdminKey, coord.WithLogger(logger))
	keys := foreman.NewKeySnapshot(cfg.Keys.Path)

	// 3. Provider routing, with optional transient-error retry
	invoke := foreman.InvokeFunc(resolve.Invoke)
	if cfg.LLM.RetryMaxAttempts > 1 {
		invoke = resolve.WithRetry(cfg.LLM.RetryMaxAttempts, foreman.RetryLogger(logger))
	}

	// 4. Executor options
	execOpts := []foreman.ExecutorOption{
		foreman.WithLogger(logger),
		foreman.WithLLMTimeout(time.Duration(cfg.LLM.TimeoutSeconds) * time.Second),
		foreman.WithMaxOutputChars(cfg.Daemon.MaxOutputChars),
	}

	if cfg.Search.BraveAPIKey != "" {
		execOpts = append(execOpts, foreman.WithSearcher(search.New(
			cfg.Search.BraveAPIKey,
			search.WithLogger(logger),
			search.WithContentFetch(cfg.Search.FetchContent),
		)))
	}

	if j := openJournal(ctx, cfg, logger); j != nil {
		defer j.Close()
		execOpts = append(execOpts, foreman.WithJournal(j))
	}

	var runner foreman.StepRunner = foreman.NewExecutor(client, keys, invoke, execOpts...)

	// 5. Optional OTEL instrumentation
	if cfg.Observer.Enabled {
		inst, shutdown, err := observer.Init(ctx)
		if err != nil {
			logger.Error("observer init failed", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("observer shutdown failed", "error", err)
			}
		}()
		runner = observer.WrapRunner(runner, inst)
	}

	// 6. Run the dispatch loop until SIGINT/SIGTERM
	daemon := foreman.NewDaemon(client, keys, runner,
		foreman.DaemonLogger(logger),
		foreman.DaemonPollInterval(time.Duration(cfg.Daemon.PollIntervalSeconds)*time.Second),
		foreman.DaemonMaxConcurrent(cfg.Daemon.MaxConcurrentSteps),
		foreman.DaemonHeartbeatInterval(time.Duration(cfg.Daemon.HeartbeatIntervalSeconds)*time.Second),
		foreman.DaemonKeySyncInterval(time.Duration(cfg.Daemon.KeySyncIntervalSeconds)*time.Second),
	)
	daemon.Run(ctx)
}

// openJournal builds the configured journal backend, or nil when disabled.
// A journal that fails to open disables itself with a warning; diagnostics
// must never keep the daemon from starting.
func openJournal(ctx context.Context, cfg config.Config, logger *slog.Logger) foreman.Journal {
	switch cfg.Journal.Driver {
	case "":
		return nil
	case "sqlite":
		j := jsqlite.New(cfg.Journal.Path, jsqlite.WithLogger(logger))
		if err := j.Init(ctx); err != nil {
			logger.Warn("journal disabled", "error", err)
			_ = j.Close()
			return nil
		}
		return j
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Journal.DSN)
		if err != nil {
			logger.Warn("journal disabled", "error", err)
			return nil
		}
		j := jpostgres.New(pool)
		if err := j.Init(ctx); err != nil {
			logger.Warn("journal disabled", "error", err)
			pool.Close()
			return nil
		}
		return poolJournal{Journal: j, pool: pool}
	default:
		logger.Warn("unknown journal driver, journal disabled", "driver", cfg.Journal.Driver)
		return nil
	}
}

// poolJournal ties the lifetime of the connection pool to the journal;
// the postgres backend itself never closes a pool it did not open.
type poolJournal struct {
	*jpostgres.Journal
	pool *pgxpool.Pool
}

func (p poolJournal) Close() error {
	p.pool.Close()
	return nil
}
