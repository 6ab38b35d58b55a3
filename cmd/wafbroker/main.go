package main

// @title           WAF Broker API
// @version         1.0
// @description     Admin API for a site's hosted WAF: registration, protection setup, traffic reports and billing.

// @contact.name   Custodia Labs
// @contact.url    https://github.com/custodia-labs/wafbroker/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/wafbroker/internal/adapters/driven/auth"
	"github.com/custodia-labs/wafbroker/internal/adapters/driven/crypto"
	"github.com/custodia-labs/wafbroker/internal/adapters/driven/httptransport"
	"github.com/custodia-labs/wafbroker/internal/adapters/driven/metrics"
	"github.com/custodia-labs/wafbroker/internal/adapters/driven/options"
	"github.com/custodia-labs/wafbroker/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/wafbroker/internal/adapters/driven/redis"
	"github.com/custodia-labs/wafbroker/internal/adapters/driven/sqlite"
	"github.com/custodia-labs/wafbroker/internal/adapters/driven/wafapi"
	"github.com/custodia-labs/wafbroker/internal/adapters/driving/http"
	"github.com/custodia-labs/wafbroker/internal/config"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driving"
	"github.com/custodia-labs/wafbroker/internal/core/services"
	"github.com/custodia-labs/wafbroker/internal/logging"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wafbroker: %v\n", err)
		os.Exit(1)
	}
}

// storage is the settings backend chosen at startup plus whatever it
// offers for locking and readiness.
type storage struct {
	settings driven.SettingsStore
	lock     driven.DistributedLock
	pinger   http.Pinger
	closers  []io.Closer
}

func (s *storage) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	return errors.Join(errs...)
}

func run() error {
	configPath := flag.String("config", os.Getenv("WAF_CONFIG"), "path to a YAML config file")
	envFile := flag.String("env-file", "", "path to a .env file (default .env)")
	flag.Parse()

	cfg, err := config.Load(config.Options{Path: *configPath, EnvFile: *envFile})
	if err != nil {
		return err
	}

	// Mode from the first argument overrides RUN_MODE
	if arg := flag.Arg(0); arg != "" {
		cfg.RunMode = arg
	}
	cfg.Site.AppVersion = version

	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("wafbroker starting", "version", version, "mode", cfg.RunMode, "storage", cfg.Storage.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ===== Storage =====
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// ===== Secrets and options =====
	var sources []driven.InstallationSecretSource
	if cfg.Secrets.InstallationSecret != "" {
		sources = append(sources, crypto.StaticSecret(cfg.Secrets.InstallationSecret))
	}
	if cfg.Secrets.Keyring {
		sources = append(sources, crypto.NewKeyringSecret(cfg.Secrets.KeyringService, true))
	}
	secrets := crypto.NewSecretStore(crypto.SecretStoreConfig{
		Settings: store.settings,
		Sources:  sources,
		SiteURL:  cfg.Site.URL,
		Salt:     cfg.Site.Salt,
		Logger:   logger,
	})

	credentials := options.NewCredentialStore(store.settings, secrets, logger)
	tokens := options.NewTokenStore(store.settings, logger)
	subscriptionCache := options.NewSubscriptionCache(store.settings, logger)
	wizardStore := options.NewWizardStore(store.settings, logger)
	statusStore := options.NewStatusStore(store.settings, logger)

	// ===== Remote API client =====
	var collector *metrics.Collector
	var clientMetrics driven.Metrics
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
		clientMetrics = collector
	}

	var limiter *rate.Limiter
	if cfg.Client.RateLimit > 0 {
		burst := cfg.Client.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Client.RateLimit), burst)
	}

	api, err := wafapi.New(wafapi.Config{
		Endpoints:     cfg.Endpoints,
		Site:          cfg.Site,
		Transport:     httptransport.New(nil),
		Credentials:   credentials,
		Tokens:        tokens,
		Lock:          store.lock,
		Metrics:       clientMetrics,
		Limiter:       limiter,
		Logger:        logger,
		Version:       version,
		Timeout:       cfg.Client.Timeout,
		MaxRedirects:  cfg.Client.MaxRedirects,
		RequestBudget: cfg.Client.RequestBudget,
		LockTTL:       cfg.Client.LockTTL,
		LockWait:      cfg.Client.LockWait,
	})
	if err != nil {
		return err
	}

	// ===== Services =====
	registration := services.NewRegistrationService(api, credentials, tokens, cfg.Site, logger)
	firewall := services.NewFirewallService(api, cfg.Site, logger)
	billing := services.NewBillingService(api, subscriptionCache, logger)
	wizard := services.NewWizardService(wizardStore, logger)
	protection := services.NewProtectionService(services.ProtectionServiceConfig{
		Registration: registration,
		Firewall:     firewall,
		Billing:      billing,
		Wizard:       wizard,
		Status:       statusStore,
		Settings:     store.settings,
		Logger:       logger,
	})

	apiServices := http.Services{
		Auth:         services.NewAdminAuthService(auth.NewAdapter(cfg.Admin.JWTSecret), cfg.Admin.PasswordHash, cfg.Admin.SessionTTL),
		Registration: registration,
		Firewall:     firewall,
		Billing:      billing,
		Wizard:       wizard,
		Protection:   protection,
	}

	g, ctx := errgroup.WithContext(ctx)

	switch cfg.RunMode {
	case config.ModeAPI:
		// API-only mode: admin HTTP server, no scheduled checks
		g.Go(func() error { return runAPI(ctx, cfg, apiServices, collector, store.pinger, logger) })

	case config.ModeMonitor:
		// Monitor-only mode: scheduled status checks, no HTTP server
		g.Go(func() error { return runMonitor(ctx, cfg, protection, store.lock, logger) })

	case config.ModeAll:
		g.Go(func() error { return runMonitor(ctx, cfg, protection, store.lock, logger) })
		g.Go(func() error { return runAPI(ctx, cfg, apiServices, collector, store.pinger, logger) })

	default:
		return fmt.Errorf("unknown mode: %s (use: api, monitor, or all)", cfg.RunMode)
	}

	err = g.Wait()
	logger.Info("wafbroker stopped")
	return err
}

// openStorage connects the configured settings backend and picks a
// distributed lock for it.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	s := &storage{}

	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db)
		s.settings = sqlite.NewSettingsStore(db)
		s.pinger = db
		logger.Info("using sqlite settings store", "path", cfg.Storage.SQLitePath)

	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, postgres.DefaultConfig(cfg.Storage.PostgresURL))
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db)
		s.settings = postgres.NewSettingsStore(db)
		s.pinger = db
		if cfg.LockBackend() == config.LockPostgres {
			s.lock = postgres.NewAdvisoryLock(db)
		}
		logger.Info("using postgres settings store")

	case config.DriverRedis:
		client, err := redisadapter.Connect(ctx, cfg.Storage.RedisURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, client)
		settings := redisadapter.NewSettingsStore(client, cfg.Storage.RedisPrefix)
		s.settings = settings
		s.pinger = settings
		if cfg.LockBackend() == config.LockRedis {
			s.lock = redisadapter.NewLock(client, cfg.Storage.RedisPrefix)
		}
		logger.Info("using redis settings store")

	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}

	// An explicit lock on another backend needs its own connection
	if s.lock == nil {
		switch cfg.LockBackend() {
		case config.LockRedis:
			client, err := redisadapter.Connect(ctx, cfg.Storage.RedisURL)
			if err != nil {
				s.Close()
				return nil, err
			}
			s.closers = append(s.closers, client)
			s.lock = redisadapter.NewLock(client, cfg.Storage.RedisPrefix)
		case config.LockPostgres:
			db, err := postgres.Connect(ctx, postgres.DefaultConfig(cfg.Storage.PostgresURL))
			if err != nil {
				s.Close()
				return nil, err
			}
			s.closers = append(s.closers, db)
			s.lock = postgres.NewAdvisoryLock(db)
		}
	}

	if s.lock != nil {
		logger.Info("distributed lock enabled", "backend", cfg.LockBackend())
	} else {
		logger.Info("distributed lock disabled")
	}
	return s, nil
}

func runAPI(
	ctx context.Context,
	cfg *config.Config,
	svcs http.Services,
	collector *metrics.Collector,
	pinger http.Pinger,
	logger *slog.Logger,
) error {
	serverCfg := http.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		Version:         version,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	var metricsHandler nethttp.Handler
	if collector != nil {
		metricsHandler = collector.Handler()
	}

	server := http.NewServer(serverCfg, svcs, metricsHandler, pinger, logger)
	logger.Info("api server starting", "host", serverCfg.Host, "port", serverCfg.Port)
	return server.Start(ctx)
}

// runMonitor schedules the periodic status check and blocks until ctx ends.
func runMonitor(
	ctx context.Context,
	cfg *config.Config,
	protection driving.ProtectionService,
	lock driven.DistributedLock,
	logger *slog.Logger,
) error {
	monitor, err := services.NewStatusMonitor(services.StatusMonitorConfig{
		Protection: protection,
		Lock:       lock,
		Logger:     logger,
		Schedule:   cfg.Monitor.Schedule,
		LockTTL:    cfg.Monitor.LockTTL,
	})
	if err != nil {
		return err
	}
	if err := monitor.Start(ctx); err != nil {
		return err
	}
	if next, ok := monitor.NextRun(); ok {
		logger.Info("next status check scheduled", "at", next)
	}

	<-ctx.Done()
	monitor.Stop()
	return nil
}
