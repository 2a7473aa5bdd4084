// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/artpar/clubdues/adapters/clock"
	apihttp "github.com/artpar/clubdues/adapters/http"
	"github.com/artpar/clubdues/adapters/http/api"
	"github.com/artpar/clubdues/adapters/idgen"
	"github.com/artpar/clubdues/adapters/metrics"
	"github.com/artpar/clubdues/app"
	"github.com/artpar/clubdues/config"
	"github.com/artpar/clubdues/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Options configure application initialization.
type Options struct {
	// ConfigPath is a YAML file. When it does not exist configuration
	// comes from CLUBDUES_* environment variables only.
	ConfigPath string

	// Config, when set, is used as is and ConfigPath is ignored.
	Config *config.Config

	Version string
	Clock   ports.Clock // defaults to the wall clock
	Output  io.Writer   // log output, defaults to stdout
	Stores  *Stores     // preopened stores, mainly for tests
}

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Stores     *Stores
	HTTPServer *http.Server
	Metrics    *metrics.Collector

	Plans   *app.PlanService
	Players *app.PlayerService
	Summary *app.SummaryService
	Sweeper *app.Sweeper

	holder *config.Holder
}

// New creates and initializes the application.
func New(opts Options) (*App, error) {
	cfg, holder, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger := setupLogger(cfg.Logging, opts.Output)
	logger.Info().Str("version", opts.Version).Msg("initializing clubdues")

	a := &App{
		Logger: logger,
		Config: cfg,
		Stores: opts.Stores,
		holder: holder,
	}

	if a.Stores == nil {
		stores, err := OpenStores(context.Background(), cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		a.Stores = stores
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	if err := a.initServices(opts.Clock); err != nil {
		a.Stores.Close()
		return nil, err
	}

	apiHandler := api.NewHandler(api.Deps{
		Plans:   a.Plans,
		Sweeper: a.Sweeper,
		Players: a.Players,
		Summary: a.Summary,
		Logger:  logger,
	})

	router := apihttp.NewRouter(apihttp.NewHealthHandler(a.Stores.Health), logger, apihttp.RouterConfig{
		Metrics:        a.Metrics,
		MetricsHandler: metricsHandler,
		MetricsPath:    cfg.Metrics.Path,
		APIHandler:     apiHandler.Router(),
		Version:        opts.Version,
		RequestTimeout: cfg.Server.WriteTimeout,
	})

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	logger.Info().Str("addr", a.HTTPServer.Addr).Msg("http server configured")

	if holder != nil {
		holder.OnReload(a.Metrics.ConfigReloaded)
		holder.OnChange(a.applyReload)
	}

	return a, nil
}

func loadConfig(opts Options) (*config.Config, *config.Holder, error) {
	if opts.Config != nil {
		return opts.Config, nil, nil
	}
	if opts.ConfigPath != "" {
		if _, err := os.Stat(opts.ConfigPath); err == nil {
			holder, err := config.NewHolder(opts.ConfigPath, setupLogger(config.LoggingConfig{Level: "info"}, opts.Output))
			if err != nil {
				return nil, nil, err
			}
			return holder.Get(), holder, nil
		}
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, err
	}
	return cfg, nil, nil
}

func (a *App) initServices(clk ports.Clock) error {
	loc, err := a.Config.Billing.Location()
	if err != nil {
		return fmt.Errorf("billing timezone: %w", err)
	}
	if clk == nil {
		clk = clock.Real{Location: loc}
	}
	ids := idgen.UUID{}

	a.Plans = app.NewPlanService(a.Stores.Invoices, a.Stores.Players, ids, clk, a.Logger, app.PlanServiceConfig{
		PlanIDs: idgen.UUID{Prefix: "plan_"},
		Metrics: a.Metrics,
	})
	a.Players = app.NewPlayerService(a.Stores.Players, ids, clk, a.Logger)
	a.Summary = app.NewSummaryService(a.Stores.Invoices, a.Stores.Players, clk, loc)
	a.Sweeper = app.NewSweeper(a.Stores.Invoices, ids, clk, a.Logger, app.SweeperConfig{
		Location:     loc,
		Schedule:     a.Config.Billing.SweepSchedule,
		SweepOnStart: a.Config.Billing.SweepOnStart,
		CatchUp:      a.Config.Billing.SweepCatchUp,
		Timeout:      a.Config.Billing.SweepTimeout,
		Metrics:      a.Metrics,
	})

	a.Logger.Info().
		Str("timezone", loc.String()).
		Str("sweep_schedule", a.Config.Billing.SweepSchedule).
		Bool("sweep_catch_up", a.Config.Billing.SweepCatchUp).
		Msg("billing services initialized")
	return nil
}

// applyReload pushes the reloadable fields of a new configuration into
// the running services.
func (a *App) applyReload(old, new *config.Config) {
	if old.Logging.Level != new.Logging.Level {
		if level, err := zerolog.ParseLevel(new.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	}
	if old.Billing.SweepCatchUp != new.Billing.SweepCatchUp {
		a.Sweeper.SetCatchUp(new.Billing.SweepCatchUp)
	}
	if old.Billing.SweepSchedule != new.Billing.SweepSchedule {
		if err := a.Sweeper.SetSchedule(new.Billing.SweepSchedule); err != nil {
			a.Logger.Error().Err(err).Str("schedule", new.Billing.SweepSchedule).Msg("keeping previous sweep schedule")
		}
	}
	a.Config = new
}

// Start launches the sweep scheduler and the config watchers.
func (a *App) Start() error {
	if a.Config.Billing.SweepScheduled() {
		if err := a.Sweeper.Start(); err != nil {
			return fmt.Errorf("start sweeper: %w", err)
		}
	} else {
		a.Logger.Info().Msg("scheduled sweep disabled")
	}

	if a.holder != nil {
		if err := a.holder.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watch unavailable, SIGHUP reload only")
		}
		a.holder.WatchSignals()
	}
	return nil
}

// Run starts the server and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	if err := a.Start(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the server, the scheduler and the store.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	// Waits for an in-flight sweep.
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}

	if err := a.Stores.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("database close error")
		return err
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}
