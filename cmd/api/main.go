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

	"go.uber.org/zap"

	"github.com/campus-events/eventhub-api/internal/adapters/httpapi"
	"github.com/campus-events/eventhub-api/internal/adapters/localidp"
	memdocstore "github.com/campus-events/eventhub-api/internal/adapters/memory/docstore"
	memidempotency "github.com/campus-events/eventhub-api/internal/adapters/memory/idempotency"
	mongoadapter "github.com/campus-events/eventhub-api/internal/adapters/mongo"
	mongodocstore "github.com/campus-events/eventhub-api/internal/adapters/mongo/docstore"
	postgres "github.com/campus-events/eventhub-api/internal/adapters/postgres"
	pgdocstore "github.com/campus-events/eventhub-api/internal/adapters/postgres/docstore"
	pgidempotency "github.com/campus-events/eventhub-api/internal/adapters/postgres/idempotency"
	"github.com/campus-events/eventhub-api/internal/app/admin"
	"github.com/campus-events/eventhub-api/internal/app/clubs"
	"github.com/campus-events/eventhub-api/internal/app/events"
	"github.com/campus-events/eventhub-api/internal/app/session"
	"github.com/campus-events/eventhub-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/campus-events/eventhub-api/internal/platform/clock"
	"github.com/campus-events/eventhub-api/internal/platform/config"
	"github.com/campus-events/eventhub-api/internal/platform/logging"
	docstoreport "github.com/campus-events/eventhub-api/internal/ports/out/docstore"
	idempotencyport "github.com/campus-events/eventhub-api/internal/ports/out/idempotency"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadAppConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log config: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api exited", zap.Error(err))
	}
}

func run(cfg config.AppConfig, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := platformclock.NewSystemClock()

	// Auth configuration:
	// - local: accounts live in the document store and this process issues the tokens
	// - jwks: an external issuer signs tokens; claims are taken from the verified token
	// - dev: no verification, the caller names itself with X-Debug-Subject
	var jwtCfg config.JWTConfig
	tokenIssuer := cfg.Identity.Issuer
	switch cfg.AuthMode {
	case config.AuthModeJWKS:
		var err error
		if jwtCfg, err = config.LoadJWTConfigFromEnv(); err != nil {
			return fmt.Errorf("invalid auth config: %w", err)
		}
		tokenIssuer = jwtCfg.Issuer
	case config.AuthModeDev:
		tokenIssuer = "dev"
	}

	store, idemStore, cleanup, err := openStorage(ctx, cfg, tokenIssuer, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	idp, err := localidp.New(store, clk, localidp.Options{
		Issuer:            cfg.Identity.Issuer,
		Audience:          cfg.Identity.Audience,
		SigningKey:        cfg.Identity.SigningKey,
		TokenTTL:          cfg.Identity.TokenTTL,
		BcryptCost:        cfg.Identity.BcryptCost,
		MinPasswordLength: cfg.Identity.MinPasswordLength,
	}, logger.Named("idp"))
	if err != nil {
		return fmt.Errorf("identity provider: %w", err)
	}

	var (
		authMW  func(http.Handler) http.Handler
		trusted bool
	)
	switch cfg.AuthMode {
	case config.AuthModeJWKS:
		verifier, err := jwtverifier.New(jwtCfg)
		if err != nil {
			return fmt.Errorf("jwks verifier: %w", err)
		}
		defer verifier.Close()
		authMW = httpapi.NewAuthMiddleware(verifier)
		trusted = true
	case config.AuthModeDev:
		logger.Warn("AUTH_MODE=dev: requests are not authenticated")
		authMW = httpapi.NewDevAuthMiddleware(cfg.DevSubject)
		trusted = true
	default:
		authMW = httpapi.NewAuthMiddleware(idp)
	}

	sessions := session.NewFactory(idp, store, clk, session.Options{
		Precedence:           cfg.RolePrecedence,
		TrustPrincipalClaims: trusted,
		Logger:               logger.Named("session"),
	})
	eventsReg := events.NewRegistry(store, clk, logger.Named("events"))
	clubsReg := clubs.NewRegistry(store, clk, logger.Named("clubs"))
	adminSvc := admin.NewService(idp, store, logger.Named("admin"))

	if err := eventsReg.Refresh(ctx); err != nil {
		return fmt.Errorf("load events: %w", err)
	}
	if err := clubsReg.Refresh(ctx); err != nil {
		return fmt.Errorf("load clubs: %w", err)
	}
	defer eventsReg.Subscribe(func(c events.Change) {
		logger.Debug("events changed", zap.String("kind", string(c.Kind)))
	})()
	defer clubsReg.Subscribe(func(clubs.Change) {
		logger.Debug("clubs changed")
	})()

	api := httpapi.NewServer(sessions, eventsReg, clubsReg, adminSvc, idp, idemStore, clk, httpapi.ServerOptions{
		AllowAdminSignup: cfg.AllowAdminSignup,
		PhoneRegion:      cfg.PhoneRegion,
		Logger:           logger,
	})
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{
		AuthMiddleware: authMW,
		Logger:         logger.Named("http"),
		LocalAccounts:  cfg.AuthMode != config.AuthModeJWKS,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening",
			zap.String("port", cfg.Port),
			zap.String("authMode", cfg.AuthMode),
			zap.String("storage", cfg.StorageBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStorage connects the configured document store. The returned cleanup releases it.
func openStorage(ctx context.Context, cfg config.AppConfig, tokenIssuer string, logger *zap.Logger) (docstoreport.Store, idempotencyport.Store, func(), error) {
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid postgres config: %w", err)
		}
		if cfg.DatabaseAutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, nil, fmt.Errorf("migrate: %w", err)
			}
			logger.Info("postgres migrations applied")
		}
		return pgdocstore.NewStore(pool), pgidempotency.NewStore(pool, tokenIssuer), pool.Close, nil

	case config.StorageMongo:
		client, db, err := mongoadapter.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, mongoadapter.ClientOptions{})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid mongo config: %w", err)
		}
		store := mongodocstore.NewStore(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		disconnect := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}
		// Idempotency records are process-local with the mongo backend.
		return store, memidempotency.NewStore(), disconnect, nil

	default:
		return memdocstore.NewStore(), memidempotency.NewStore(), func() {}, nil
	}
}
