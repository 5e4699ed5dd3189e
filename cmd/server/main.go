package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/castlemilk/pfinance/analytics/internal/auth"
	"github.com/castlemilk/pfinance/analytics/internal/config"
	"github.com/castlemilk/pfinance/analytics/internal/logger"
	"github.com/castlemilk/pfinance/analytics/internal/notify"
	"github.com/castlemilk/pfinance/analytics/internal/service"
	"github.com/castlemilk/pfinance/analytics/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewWithOptions(os.Stdout, logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	st, closeStore, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer closeStore()
	log.Info().Str("backend", cfg.Store.Backend).Msg("store ready")

	publisher, err := newPublisher(cfg.Notify, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	analytics := service.NewAnalyticsService(st, service.Config{
		Recurring: cfg.Recurring,
		Forecast:  cfg.Forecast,
		Insights:  cfg.Insights,
		CacheSize: cfg.Cache.Size,
		CacheTTL:  cfg.Cache.TTL,
	}, notify.NewNotifier(publisher, cfg.Notify.MaxLevel, notify.DefaultRetryConfig))

	go analytics.RunCacheCleanup(logger.WithContext(ctx, log), cfg.Cache.TTL)

	// Logging first so rejected calls are logged too.
	interceptors := []connect.Interceptor{service.LoggingInterceptor(log)}
	if cfg.Auth.Skip {
		log.Warn().Str("dev_user_id", cfg.Auth.DevUserID).Msg("auth disabled, using mock authentication")
		interceptors = append(interceptors, auth.DevInterceptor(cfg.Auth.DevUserID))
	} else {
		firebaseAuth, err := auth.NewFirebaseAuth(ctx, cfg.Store.ProjectID, cfg.Auth.CredentialsFile)
		if err != nil {
			return fmt.Errorf("initialize Firebase Auth: %w", err)
		}
		interceptors = append(interceptors, auth.AuthInterceptor(firebaseAuth))
	}

	path, handler := analytics.Handler(connect.WithInterceptors(interceptors...))

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Connect-Protocol-Version",
			"Connect-Timeout-Ms",
			"Content-Type",
			"User-Agent",
			"X-User-Agent",
			"X-Debug-Impersonate-User",
		},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           h2c.NewHandler(c.Handler(mux), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func newPublisher(cfg config.NotifyConfig, log zerolog.Logger) (notify.Publisher, error) {
	if cfg.AMQPURL == "" {
		return notify.NewLogPublisher(log), nil
	}
	pub, err := notify.NewAMQPPublisher(cfg.AMQPURL, cfg.Exchange)
	if err != nil {
		return nil, fmt.Errorf("connect alert broker: %w", err)
	}
	log.Info().Str("exchange", cfg.Exchange).Msg("publishing alerts to AMQP")
	return pub, nil
}
