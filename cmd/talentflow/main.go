package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/johnwards/talentflow/internal/api"
	"github.com/johnwards/talentflow/internal/api/admin"
	"github.com/johnwards/talentflow/internal/api/applications"
	"github.com/johnwards/talentflow/internal/api/jobs"
	"github.com/johnwards/talentflow/internal/api/pipelines"
	"github.com/johnwards/talentflow/internal/cache"
	"github.com/johnwards/talentflow/internal/config"
	"github.com/johnwards/talentflow/internal/database"
	"github.com/johnwards/talentflow/internal/seed"
	"github.com/johnwards/talentflow/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.WithError(err).Fatal("fatal error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log.SetLevel(cfg.LogLevel)
	if cfg.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if cfg.Seed {
		if err := seed.Seed(ctx, db); err != nil {
			return fmt.Errorf("seed data: %w", err)
		}
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() { _ = rdb.Close() }()
		log.WithField("ttl", cfg.CacheTTL).Info("redis cache enabled")
	}

	s := cache.Wrap(store.New(db), rdb, cfg.CacheTTL)
	deduper := cache.NewRedisDeduper(rdb, cfg.IdempotencyTTL)

	authn, err := authenticator(cfg)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()

	jobs.RegisterRoutes(mux, s)
	pipelines.RegisterRoutes(mux, s)
	applications.RegisterRoutes(mux, s, deduper)

	admin.RegisterRoutes(mux, db, func(ctx context.Context) error {
		return cache.Purge(ctx, rdb)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		corrID := api.CorrelationID(r.Context())
		api.WriteError(w, http.StatusNotFound, api.NewNotFoundError(
			fmt.Sprintf("No route found for %s %s", r.Method, r.URL.Path),
			corrID,
		))
	})

	handler := api.Chain(mux,
		api.Recovery(),
		api.RequestID(),
		api.Auth(authn),
		api.JSONContentType(),
		api.Logging(log.StandardLogger()),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Info("shutting down server")
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("server shutdown error")
		}
	}()

	log.WithFields(log.Fields{"addr": cfg.Addr, "auth": cfg.AuthEnabled()}).Info("starting talentflow server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}

	return nil
}

// authenticator picks HS256 when a shared secret is configured, then a
// remote JWKS, and otherwise disables authentication.
func authenticator(cfg config.Config) (*api.Authenticator, error) {
	switch {
	case cfg.AuthSecret != "":
		return api.NewHMACAuthenticator(cfg.AuthSecret, cfg.JWTAudience, cfg.JWTIssuer), nil
	case cfg.JWKSURL != "":
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				log.WithError(err).Warn("refresh JWKS")
			},
		})
		if err != nil {
			return nil, fmt.Errorf("load JWKS: %w", err)
		}
		return api.NewJWKSAuthenticator(jwks, cfg.JWTAudience, cfg.JWTIssuer), nil
	default:
		return nil, nil
	}
}
