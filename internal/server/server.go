package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"

	"github.com/dwarvesf/chain-scanner/internal/chain"
	"github.com/dwarvesf/chain-scanner/internal/checkpoint"
	"github.com/dwarvesf/chain-scanner/internal/handler"
	"github.com/dwarvesf/chain-scanner/internal/handler/health"
	"github.com/dwarvesf/chain-scanner/internal/monitoring"
	"github.com/dwarvesf/chain-scanner/internal/scanner"
	"github.com/dwarvesf/chain-scanner/internal/sink"
	"github.com/dwarvesf/chain-scanner/internal/telemetry"
	transport "github.com/dwarvesf/chain-scanner/internal/transport/http"
	"github.com/dwarvesf/chain-scanner/internal/utils/config"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
	"github.com/dwarvesf/chain-scanner/internal/utils/vault"
	"github.com/dwarvesf/chain-scanner/internal/utils/webhook"
)

const shutdownTimeout = 10 * time.Second

// App is the assembled scanner service: one scanner per enabled chain plus
// the shared checkpoint store, sink and metrics.
type App struct {
	config           *config.AppConfig
	logger           *logger.Logger
	registry         *prometheus.Registry
	httpMetrics      *monitoring.HTTPMetrics
	store            checkpoint.IStore
	sink             sink.ISink
	runtimes         []*chain.Runtime
	healthChains     []health.Chain
	telemetry        *telemetry.Telemetry
	jobStatusManager *monitoring.JobStatusManager
	jobs             []scheduledScan
}

type scheduledScan struct {
	chain  string
	period string
	job    *monitoring.InstrumentedScan
}

// New builds every enabled chain of the table at appConfig.Scanner.ChainsFile.
func New(appConfig *config.AppConfig, logger *logger.Logger) (*App, error) {
	table, err := chain.Load(appConfig.Scanner.ChainsFile)
	if err != nil {
		return nil, err
	}
	chains := table.Enabled()
	if len(chains) == 0 {
		return nil, errors.Errorf("no enabled chain in %s", appConfig.Scanner.ChainsFile)
	}

	breaker := monitoring.NewCircuitBreakerConfig(appConfig.Monitoring)
	if err := breaker.Validate(); err != nil {
		return nil, errors.Wrap(err, "circuit breaker config")
	}

	jobMetrics := monitoring.NewBackgroundJobMetrics()
	a := &App{
		config:           appConfig,
		logger:           logger,
		registry:         prometheus.NewRegistry(),
		httpMetrics:      monitoring.NewHTTPMetrics(),
		jobStatusManager: monitoring.NewJobStatusManager(logger, jobMetrics, 3*appConfig.Scanner.JobTimeout),
	}

	apiMetrics := monitoring.NewExternalAPIMetrics()
	scannerMetrics := monitoring.NewScannerMetrics()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	apiMetrics.MustRegister(a.registry)
	scannerMetrics.MustRegister(a.registry)
	jobMetrics.MustRegister(a.registry)
	a.httpMetrics.MustRegister(a.registry)

	var secrets vault.ISecretReader
	if appConfig.Vault.Addr != "" {
		secrets = vault.New(appConfig.Vault.Addr, appConfig.Vault.KVSecretPath, appConfig.Vault.Role)
	}

	a.store, err = checkpoint.New(appConfig.Checkpoint, logger)
	if err != nil {
		return nil, err
	}
	a.sink, err = sink.New(appConfig.Kafka, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	deps := chain.Dependencies{
		Scanner:    appConfig.Scanner,
		Breaker:    breaker,
		APIMetrics: apiMetrics,
		Metrics:    scannerMetrics,
		Secrets:    secrets,
		Registry:   chain.BuildRegistry(chains),
		Logger:     logger,
	}

	var heartbeat monitoring.Heartbeater
	if appConfig.Monitoring.HeartbeatWebhookURL != "" {
		heartbeat = webhook.New(logger)
	}

	scanners := make([]telemetry.IScanner, 0, len(chains))
	for _, c := range chains {
		rt, err := chain.Build(c, deps)
		if err != nil {
			a.Close()
			return nil, errors.Wrapf(err, "chain %s", c.Name)
		}
		a.runtimes = append(a.runtimes, rt)

		cfg := rt.ScannerConfig(appConfig.Scanner)
		cfg.CheckpointTTL = appConfig.Checkpoint.TTL
		s := scanner.New(cfg, rt.Explorer, a.store, a.sink, scannerMetrics, logger)
		scanners = append(scanners, s)

		a.healthChains = append(a.healthChains, health.Chain{
			Name:          c.Name,
			CheckpointKey: s.CheckpointKey(),
			Probe:         rt.Explorer,
		})

		logger.Info("[server.New] chain ready", map[string]string{
			"chain":     c.Name,
			"providers": strconv.Itoa(len(rt.Providers)),
			"key":       s.CheckpointKey(),
		})
	}
	a.telemetry = telemetry.New(scanners, logger)

	for _, c := range chains {
		name := c.Name
		period := c.Period
		if period == "" {
			period = appConfig.Scanner.DefaultPeriod
		}
		a.jobs = append(a.jobs, scheduledScan{
			chain:  name,
			period: period,
			job: monitoring.NewInstrumentedScan(name, func(ctx context.Context) (map[string]any, error) {
				return a.telemetry.ScanChain(ctx, name)
			}, a.jobStatusManager, heartbeat, appConfig.Monitoring.HeartbeatWebhookURL, logger, appConfig.Scanner.JobTimeout),
		})
	}

	return a, nil
}

func (a *App) Telemetry() *telemetry.Telemetry { return a.telemetry }

// Close releases provider connections, the sink and the checkpoint store.
func (a *App) Close() {
	for _, rt := range a.runtimes {
		rt.Close()
	}
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			a.logger.Error("[App.Close] close sink", map[string]string{"error": err.Error()})
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("[App.Close] close checkpoint store", map[string]string{"error": err.Error()})
		}
	}
}

// Serve schedules every chain scan and serves the operational endpoints until
// ctx is done.
func (a *App) Serve(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{a.logger})))
	for _, s := range a.jobs {
		job := s.job
		if _, err := c.AddFunc(s.period, func() {
			_ = job.Execute(ctx)
		}); err != nil {
			return errors.Wrapf(err, "schedule %s with %q", s.chain, s.period)
		}
	}
	c.Start()
	go a.jobStatusManager.Start(ctx)

	h := handler.New(a.logger, a.store, a.healthChains, a.jobStatusManager)
	srv := &http.Server{
		Addr:              a.config.ApiServer.Addr,
		Handler:           transport.NewHttpServer(a.config, h, a.registry, a.httpMetrics),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("[App.Serve] http server listening", map[string]string{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	a.logger.Info("[App.Serve] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("[App.Serve] http shutdown", map[string]string{"error": err.Error()})
	}
	select {
	case <-c.Stop().Done():
	case <-shutdownCtx.Done():
		a.logger.Warn("[App.Serve] scan jobs still running at shutdown")
	}
	return serveErr
}

func Init() {
	appConfig := config.New()
	logger := logger.New(appConfig.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(appConfig, logger)
	if err != nil {
		logger.Fatal("[server.Init] failed to build scanner", map[string]string{"error": err.Error()})
	}
	defer app.Close()

	if err := app.Serve(ctx); err != nil {
		logger.Error("[server.Init] server stopped", map[string]string{"error": err.Error()})
	}
}
