package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mananjary-mi/family-portal/pkg/audit"
	"github.com/mananjary-mi/family-portal/pkg/backend"
	"github.com/mananjary-mi/family-portal/pkg/config"
	"github.com/mananjary-mi/family-portal/pkg/crypto"
	"github.com/mananjary-mi/family-portal/pkg/database"
	"github.com/mananjary-mi/family-portal/pkg/genealogy"
	"github.com/mananjary-mi/family-portal/pkg/handlers"
	"github.com/mananjary-mi/family-portal/pkg/logging"
	"github.com/mananjary-mi/family-portal/pkg/metrics"
	"github.com/mananjary-mi/family-portal/pkg/middleware"
	"github.com/mananjary-mi/family-portal/pkg/repositories"
	"github.com/mananjary-mi/family-portal/pkg/services"
	"github.com/mananjary-mi/family-portal/pkg/session"
	"github.com/mananjary-mi/family-portal/pkg/viewfetch"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	sessionCleanupInterval = 5 * time.Minute
	shutdownTimeout        = 15 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		logConfig := zap.NewDevelopmentConfig()
		logConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		return logConfig.Build()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("backend", cfg.Backend.URL),
		zap.String("source", cfg.Source.Mode),
		zap.String("auth_mode", cfg.Auth.Mode),
		zap.String("session_store", cfg.Session.Store))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	cfg.Backend.URL = config.ResolveURLForDocker(cfg.Backend.URL)
	backendClient := backend.NewClient(cfg.Backend, logger, backend.WithObserver(m))

	source, closeSource, err := newFamilySource(ctx, cfg, backendClient, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	store, closeStore, err := newSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	verifier, err := session.NewTokenVerifier(ctx, cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}

	secret := cfg.Session.Secret
	if secret == "" {
		if cfg.Env != "local" {
			return errors.New("SESSION_SECRET is required outside local development")
		}
		secret = uuid.NewString()
		logger.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}

	sessionManager := session.NewManager(store, verifier, cfg.Session.TTL, logger)
	cookie := session.NewCookie(cfg.Session.CookieName, secret, cfg.BaseURL, cfg.Session.TTL)
	sessionMiddleware := session.NewMiddleware(sessionManager, cookie, logger)

	builder := genealogy.NewBuilder(logger, genealogy.WithRecorder(m))
	tracker := viewfetch.NewTracker(logger, viewfetch.WithSupersededHook(m.FetchSuperseded))

	authService := services.NewAuthService(backendClient, sessionManager, logger)
	familyService := services.NewFamilyTreeService(source, builder, tracker, logger)

	mux := http.NewServeMux()

	// Register handlers
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAuthHandler(authService, cookie, audit.NewSecurityAuditor(logger), logger).RegisterRoutes(mux, sessionMiddleware)
	handlers.NewFamilyHandler(familyService, logger).RegisterRoutes(mux, sessionMiddleware)
	mux.Handle("GET /metrics", m.Handler())

	// Serve static UI files from ui/dist
	mux.Handle("/", http.FileServer(http.Dir("./ui/dist")))

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger.Named("http"), m)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting family-portal",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// newFamilySource returns the configured person and relation source and a
// function releasing its resources.
func newFamilySource(ctx context.Context, cfg *config.Config, client *backend.Client, logger *zap.Logger) (services.FamilySource, func(), error) {
	switch cfg.Source.Mode {
	case config.SourcePostgres:
		cfg.Database.Host = config.ResolveHostForDocker(cfg.Database.Host)
		dbCfg := database.ConfigFrom(cfg.Database)

		sqlDB, err := database.OpenSQL(dbCfg.URL)
		if err != nil {
			return nil, nil, err
		}
		// RunMigrations closes sqlDB.
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		db, err := database.NewConnection(ctx, dbCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Info("Reading family data from PostgreSQL",
			zap.String("url", logging.SanitizeConnectionString(dbCfg.URL)))

		store := repositories.NewFamilyStore(
			repositories.NewPersonRepository(db.Pool),
			repositories.NewRelationRepository(db.Pool),
		)
		return store, db.Close, nil
	default:
		logger.Info("Reading family data from the community backend", zap.String("url", cfg.Backend.URL))
		return client, func() {}, nil
	}
}

// newSessionStore returns the configured session store and a function
// releasing its resources.
func newSessionStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.Store, func(), error) {
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		cfg.Redis.Host = config.ResolveHostForDocker(cfg.Redis.Host)
		client, err := database.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		var opts []session.RedisOption
		if cfg.Session.EncryptionKey != "" {
			cipher, err := crypto.NewTokenCipher(cfg.Session.EncryptionKey)
			if err != nil {
				_ = client.Close()
				return nil, nil, fmt.Errorf("failed to create token cipher: %w", err)
			}
			opts = append(opts, session.WithTokenCipher(cipher))
		} else {
			logger.Warn("SESSION_ENCRYPTION_KEY not set, backend tokens are stored in Redis unencrypted")
		}

		logger.Info("Storing sessions in Redis", zap.String("addr", cfg.Redis.Addr()))
		return session.NewRedisStore(client, opts...), func() { _ = client.Close() }, nil
	default:
		store := session.NewMemoryStore(logger)
		go store.RunCleanup(ctx, sessionCleanupInterval)
		return store, func() {}, nil
	}
}
