package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/okian/recap/internal/adapters/http/api"
	"github.com/okian/recap/internal/adapters/http/swagger"
	"github.com/okian/recap/internal/adapters/http/web"
	"github.com/okian/recap/internal/adapters/snapshot"
	service "github.com/okian/recap/internal/app"
	"github.com/okian/recap/internal/config"
	"github.com/okian/recap/pkg/logger"
	"github.com/okian/recap/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the board with its web page, JSON API and metrics",
		Example: `  # Serve on the default address
  recap serve

  # Serve a saved board with instant removals
  recap serve --seed-file board.json --removal-delay-ms 0`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), GetConfig(cmd.Context()))
		},
	}
	fs := cmd.Flags()
	fs.String("addr", "", "HTTP listen address")
	addServiceFlags(fs)
	return cmd
}

// addServiceFlags registers the flags that shape the in-process service.
func addServiceFlags(fs *pflag.FlagSet) {
	fs.Int("queue-size", 0, "Maximum number of queued intents")
	fs.Int("dedupe-size", 0, "Number of intent IDs remembered for idempotency")
	fs.Int("removal-delay-ms", 0, "Exit delay between a delete and the removal")
	fs.Bool("strict-indices", false, "Treat out-of-range positions as a programming error")
	fs.String("seed-file", "", "Board document loaded at startup")
	fs.String("start-date", "", "Start of the reporting period")
	fs.String("end-date", "", "End of the reporting period")
}

func runServe(parent context.Context, cfg *config.Config) error {
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := newService(cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	eg, egctx := errgroup.WithContext(ctx)

	// No WriteTimeout: the SSE stream outlives any single write deadline.
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(svc, log),
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
	}

	eg.Go(func() error {
		log.Info(egctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		log.Info(egctx, "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		log.Info(egctx, "server stopped")
		return nil
	})

	eg.Go(func() error {
		startSystemMetricsUpdater(egctx)
		return nil
	})
	eg.Go(func() error {
		startServiceMetricsUpdater(egctx, svc)
		return nil
	})

	return eg.Wait()
}

// NewRouter mounts the API, the docs and the web page on one chi router.
func NewRouter(svc *service.Service, log logger.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
	)

	api.NewServer(svc, svc, api.WithLogger(log.Named("api"))).Register(r)
	swagger.Register(r)
	web.SetupRoutes(r, svc, log.Named("web"))
	return r
}

// newService builds the service from configuration, loading the seed file
// when one is configured.
func newService(cfg *config.Config, log logger.Logger) (*service.Service, error) {
	start, end := cfg.StartDate, cfg.EndDate
	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithRemovalDelay(cfg.RemovalDelay()),
		service.WithStrictIndices(cfg.StrictIndices),
	}
	if cfg.SeedFile != "" {
		doc, err := snapshot.ReadFile(cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("seed file %s: %w", cfg.SeedFile, err)
		}
		if doc.HasCappers {
			opts = append(opts, service.WithSeed(doc.Cappers))
		}
		if doc.StartDate != "" {
			start = doc.StartDate
		}
		if doc.EndDate != "" {
			end = doc.EndDate
		}
	}
	opts = append(opts, service.WithPeriod(start, end))
	return service.New(opts...), nil
}

// startSystemMetricsUpdater updates system metrics until ctx ends.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater mirrors service stats into gauges until ctx ends.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if queueSize, ok := stats["queueSize"].(int); ok {
		metrics.UpdateQueueCapacity(queueSize)
	}
}
