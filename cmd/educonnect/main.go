package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-educonnect"
	"github.com/goliatone/go-educonnect/config"
	"github.com/goliatone/go-educonnect/kratos"
	"github.com/goliatone/go-educonnect/metrics"
	"github.com/goliatone/go-educonnect/middleware/csrf"
	"github.com/goliatone/go-educonnect/tokenstore"
)

type App struct {
	config    *config.Config
	logger    *glog.BaseLogger
	db        *bun.DB
	repo      educonnect.RepositoryManager
	tokens    tokenstore.Store
	instances *educonnect.InstanceRegistry
	gatherer  *prometheus.Registry
	sink      educonnect.ActivitySink
	srv       router.Server[*fiber.App]
	metrics   *http.Server
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("educonnect"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	if cfg.Debug {
		fmt.Println("============")
		fmt.Println(print.MaybeHighlightJSON(redacted(cfg)))
		fmt.Println("============")
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := WithPersistence(ctx, app); err != nil {
		lgr.Error("persistence setup failed", "error", err)
		os.Exit(1)
	}

	if err := WithTokenStore(ctx, app); err != nil {
		lgr.Error("token store setup failed", "error", err)
		os.Exit(1)
	}

	WithMetrics(app)
	WithInstances(ctx, app)

	if err := WithHTTPServer(app); err != nil {
		lgr.Error("http setup failed", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := app.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.GetLogger("metrics").Error("metrics server stopped", "error", err)
		}
	}()

	app.srv.Serve(cfg.HTTP.Addr)
	lgr.Info("server started", "addr", cfg.HTTP.Addr, "metrics", cfg.Metrics.Addr)

	sig := WaitExitSignal()
	lgr.Info("shutting down", "signal", sig.String())

	Shutdown(app, cancel)
}

func WithPersistence(ctx context.Context, app *App) error {
	sqldb, err := sql.Open(sqliteshim.ShimName, app.config.Database.DSN)
	if err != nil {
		return err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := educonnect.Migrate(ctx, db, app.GetLogger("migrations")); err != nil {
		return err
	}

	repo := educonnect.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		return err
	}

	app.db = db
	app.repo = repo
	return nil
}

// WithTokenStore keeps session tokens in Redis when an address is
// configured and in process memory otherwise.
func WithTokenStore(ctx context.Context, app *App) error {
	rcfg := app.config.Redis
	if rcfg.Addr == "" {
		app.GetLogger("tokens").Warn("redis address not set, session tokens are kept in memory")
		app.tokens = tokenstore.NewMemory()
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     rcfg.Addr,
		Password: rcfg.Password,
		DB:       rcfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", rcfg.Addr, err)
	}

	app.tokens = tokenstore.NewRedis(client)
	return nil
}

func WithMetrics(app *App) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	collected := metrics.New(reg)

	sinks := educonnect.MultiActivitySink{collected.Sink()}
	if app.config.Debug {
		sinks = append(sinks, debugSink(app.GetLogger("activity")))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))

	app.gatherer = reg
	app.sink = sinks
	app.metrics = &http.Server{
		Addr:              app.config.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func WithInstances(ctx context.Context, app *App) {
	api := kratos.NewAPIClient(kratos.Config{
		PublicURL: app.config.Kratos.PublicURL,
		Timeout:   app.config.Kratos.Timeout,
	})

	factory := kratos.NewFactory(api, app.tokens, app.GetLogger("kratos"))

	app.instances = educonnect.NewInstanceRegistry(factory).
		WithLogger(app.GetLogger("instances")).
		WithActivitySink(app.sink).
		WithBootstrapTimeout(app.config.GetBootstrapTimeout())

	go app.instances.RunSweeper(ctx, app.config.Instance.SweepInterval, app.config.GetInstanceIdleTimeout())
}

func WithHTTPServer(app *App) error {
	engine, err := newViewEngine()
	if err != nil {
		return err
	}

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: app.config.Debug,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	instances := educonnect.NewInstanceMiddleware(app.instances, app.config).
		WithLogger(app.GetLogger("instances"))

	key := sha256.Sum256([]byte(app.config.GetSigningKey()))
	protect := csrf.New(csrf.Config{
		SecureKey: key[:],
		SessionKey: func(ctx router.Context) string {
			if inst, ok := educonnect.InstanceFromRouterContext(ctx); ok {
				return inst.ID()
			}
			return ""
		},
	})

	educonnect.RegisterAppRoutes(srv.Router(),
		educonnect.WithAppLogger(app.GetLogger("controller")),
		educonnect.WithAppConfig(app.config),
		educonnect.WithAppRepository(app.repo),
		educonnect.WithAppInstances(instances),
		educonnect.WithAppActivitySink(app.sink),
		educonnect.WithAppCSRF(protect),
		educonnect.WithAppDebug(app.config.Debug),
	)

	app.srv = srv
	return nil
}

func Shutdown(app *App, cancel context.CancelFunc) {
	ctx, done := context.WithTimeout(context.Background(), app.config.HTTP.ShutdownTimeout)
	defer done()

	if err := app.srv.Shutdown(ctx); err != nil {
		app.GetLogger("http").Error("http shutdown failed", "error", err)
	}

	if err := app.metrics.Shutdown(ctx); err != nil {
		app.GetLogger("metrics").Error("metrics shutdown failed", "error", err)
	}

	cancel()
	app.instances.Close()

	if err := app.db.Close(); err != nil {
		app.GetLogger("persistence").Error("database close failed", "error", err)
	}
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}

func debugSink(logger glog.Logger) educonnect.ActivitySink {
	return educonnect.ActivitySinkFunc(func(_ context.Context, event educonnect.ActivityEvent) error {
		logger.Debug("activity", "event", event.EventType, "payload", print.MaybePrettyJSON(event))
		return nil
	})
}

func redacted(cfg *config.Config) config.Config {
	out := *cfg
	if out.Auth.SigningKey != "" {
		out.Auth.SigningKey = "***"
	}
	if out.Redis.Password != "" {
		out.Redis.Password = "***"
	}
	return out
}
