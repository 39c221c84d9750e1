// Command server starts the portfolio site HTTP service.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"shilohnova/internal/api"
	"shilohnova/internal/auth"
	"shilohnova/internal/observability/logging"
	"shilohnova/internal/observability/metrics"
	"shilohnova/internal/render"
	"shilohnova/internal/server"
	"shilohnova/internal/storage"
	"shilohnova/web"
)

const (
	defaultAdminEmail    = "test@example.com"
	defaultAdminPassword = "password123"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	dataPath := flag.String("data", "", "path to JSON datastore")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresMaxConnLifetime := flag.Duration("postgres-max-conn-lifetime", 0, "maximum lifetime for a pooled Postgres connection")
	postgresMaxConnIdle := flag.Duration("postgres-max-conn-idle", 0, "maximum idle time for a pooled Postgres connection")
	postgresHealthInterval := flag.Duration("postgres-health-interval", 0, "interval between Postgres health checks")
	postgresConnectTimeout := flag.Duration("postgres-connect-timeout", 0, "timeout when opening the Postgres pool")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")
	sessionStoreDriver := flag.String("session-store", "", "session store driver (memory or redis)")
	sessionRedisAddr := flag.String("session-redis-addr", "", "Redis address for the session store")
	sessionRedisUsername := flag.String("session-redis-username", "", "Redis username for the session store")
	sessionRedisPassword := flag.String("session-redis-password", "", "Redis password for the session store")
	sessionRedisDB := flag.Int("session-redis-db", 0, "Redis database index for the session store")
	sessionTTL := flag.Duration("session-ttl", 0, "lifetime of an admin session")
	sessionPurgeInterval := flag.Duration("session-purge-interval", 0, "interval between expired session sweeps")
	adminEmail := flag.String("admin-email", "", "admin login email")
	adminPassword := flag.String("admin-password", "", "admin login password")
	siteTitle := flag.String("site-title", "", "site title shown on every page")
	siteTagline := flag.String("site-tagline", "", "site tagline shown on the home page")
	siteAuthor := flag.String("site-author", "", "site author name")
	siteEmail := flag.String("site-email", "", "contact email shown on the contacts page")
	siteGitHub := flag.String("site-github", "", "GitHub profile URL shown on the contacts page")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log format (json or text)")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	loginLimit := flag.Int("rate-login-limit", 0, "maximum login attempts per window for a single IP")
	loginWindow := flag.Duration("rate-login-window", 0, "window for counting login attempts")
	rateRedisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed login throttling")
	rateRedisPassword := flag.String("rate-redis-password", "", "Redis password for distributed login throttling")
	rateRedisTimeout := flag.Duration("rate-redis-timeout", 0, "timeout for Redis rate limiter operations")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("SHILOHNOVA_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("SHILOHNOVA_LOG_FORMAT")),
	})
	auditLogger := logging.WithComponent(logger, "audit")
	recorder := metrics.Default()

	listenAddr := firstNonEmpty(*addr, os.Getenv("SHILOHNOVA_ADDR"), ":8080")

	store, err := openStore(storeSettings{
		Driver:         firstNonEmpty(*storageDriver, os.Getenv("SHILOHNOVA_STORAGE_DRIVER")),
		DataPath:       firstNonEmpty(*dataPath, os.Getenv("SHILOHNOVA_DATA"), "data/store.json"),
		PostgresDSN:    resolvePostgresDSN(*postgresDSN),
		MaxConns:       resolveInt(*postgresMaxConns, "SHILOHNOVA_POSTGRES_MAX_CONNS"),
		MinConns:       resolveInt(*postgresMinConns, "SHILOHNOVA_POSTGRES_MIN_CONNS"),
		MaxLifetime:    resolveDuration(*postgresMaxConnLifetime, "SHILOHNOVA_POSTGRES_MAX_CONN_LIFETIME", 0),
		MaxIdle:        resolveDuration(*postgresMaxConnIdle, "SHILOHNOVA_POSTGRES_MAX_CONN_IDLE", 0),
		HealthInterval: resolveDuration(*postgresHealthInterval, "SHILOHNOVA_POSTGRES_HEALTH_INTERVAL", 0),
		ConnectTimeout: resolveDuration(*postgresConnectTimeout, "SHILOHNOVA_POSTGRES_CONNECT_TIMEOUT", 0),
		AppName:        firstNonEmpty(*postgresAppName, os.Getenv("SHILOHNOVA_POSTGRES_APP_NAME")),
	})
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}

	email := firstNonEmpty(*adminEmail, os.Getenv("SHILOHNOVA_ADMIN_EMAIL"), defaultAdminEmail)
	password := firstNonEmpty(*adminPassword, os.Getenv("SHILOHNOVA_ADMIN_PASSWORD"), defaultAdminPassword)
	if email == defaultAdminEmail && password == defaultAdminPassword {
		logger.Warn("using built-in admin credentials; set SHILOHNOVA_ADMIN_EMAIL and SHILOHNOVA_ADMIN_PASSWORD")
	}
	credentials, err := auth.NewStaticCredentials(email, password)
	if err != nil {
		logger.Error("failed to prepare admin credentials", "error", err)
		os.Exit(1)
	}

	sessionStore, sessionCloser, err := openSessionStore(sessionSettings{
		Driver:   firstNonEmpty(*sessionStoreDriver, os.Getenv("SHILOHNOVA_SESSION_STORE")),
		Addr:     firstNonEmpty(*sessionRedisAddr, os.Getenv("SHILOHNOVA_SESSION_REDIS_ADDR")),
		Username: firstNonEmpty(*sessionRedisUsername, os.Getenv("SHILOHNOVA_SESSION_REDIS_USERNAME")),
		Password: firstNonEmpty(*sessionRedisPassword, os.Getenv("SHILOHNOVA_SESSION_REDIS_PASSWORD")),
		DB:       resolveInt(*sessionRedisDB, "SHILOHNOVA_SESSION_REDIS_DB"),
	})
	if err != nil {
		logger.Error("failed to open session store", "error", err)
		os.Exit(1)
	}

	ttl := resolveDuration(*sessionTTL, "SHILOHNOVA_SESSION_TTL", auth.DefaultSessionTTL)
	sessions := auth.NewSessionManager(ttl, auth.WithStore(sessionStore))

	site := render.DefaultSiteConfig()
	if v := firstNonEmpty(*siteTitle, os.Getenv("SHILOHNOVA_SITE_TITLE")); v != "" {
		site.Title = v
	}
	if v := firstNonEmpty(*siteTagline, os.Getenv("SHILOHNOVA_SITE_TAGLINE")); v != "" {
		site.Tagline = v
	}
	if v := firstNonEmpty(*siteAuthor, os.Getenv("SHILOHNOVA_SITE_AUTHOR")); v != "" {
		site.Author = v
	}
	if v := firstNonEmpty(*siteEmail, os.Getenv("SHILOHNOVA_SITE_EMAIL")); v != "" {
		site.Email = v
	}
	if v := firstNonEmpty(*siteGitHub, os.Getenv("SHILOHNOVA_SITE_GITHUB")); v != "" {
		site.GitHub = v
	}

	templatesFS, err := web.Templates()
	if err != nil {
		logger.Error("failed to load templates", "error", err)
		os.Exit(1)
	}
	renderer, err := render.NewPipeline(templatesFS, store, site,
		render.WithLogger(logging.WithComponent(logger, "render")),
		render.WithMetrics(recorder))
	if err != nil {
		logger.Error("failed to build render pipeline", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(store, sessions, credentials, logging.WithComponent(logger, "api"))
	handler.Metrics = recorder

	rateCfg := server.RateLimitConfig{
		GlobalRPS:     resolveFloat(*globalRPS, "SHILOHNOVA_RATE_GLOBAL_RPS"),
		GlobalBurst:   resolveInt(*globalBurst, "SHILOHNOVA_RATE_GLOBAL_BURST"),
		LoginLimit:    resolveInt(*loginLimit, "SHILOHNOVA_RATE_LOGIN_LIMIT"),
		LoginWindow:   resolveDuration(*loginWindow, "SHILOHNOVA_RATE_LOGIN_WINDOW", time.Minute),
		RedisAddr:     firstNonEmpty(*rateRedisAddr, os.Getenv("SHILOHNOVA_RATE_REDIS_ADDR")),
		RedisPassword: firstNonEmpty(*rateRedisPassword, os.Getenv("SHILOHNOVA_RATE_REDIS_PASSWORD")),
		RedisTimeout:  resolveDuration(*rateRedisTimeout, "SHILOHNOVA_RATE_REDIS_TIMEOUT", 2*time.Second),
	}

	srv, err := server.New(handler, renderer, server.Config{
		Addr:        listenAddr,
		TLS:         server.TLSConfig{CertFile: firstNonEmpty(*tlsCert, os.Getenv("SHILOHNOVA_TLS_CERT")), KeyFile: firstNonEmpty(*tlsKey, os.Getenv("SHILOHNOVA_TLS_KEY"))},
		RateLimit:   rateCfg,
		Logger:      logger,
		AuditLogger: auditLogger,
		Metrics:     recorder,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	purgeInterval := resolveDuration(*sessionPurgeInterval, "SHILOHNOVA_SESSION_PURGE_INTERVAL", 15*time.Minute)
	purgeStop := startSessionPurgeWorker(ctx, logging.WithComponent(logger, "session-purger"), recorder, sessions, purgeInterval)
	defer purgeStop()

	logger.Info("site listening", "addr", listenAddr)
	logger.Info("metrics endpoint available", "path", "/metrics")
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
	}

	purgeStop()

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Close(closeCtx); err != nil {
		logger.Warn("failed to close datastore", "error", err)
	}
	if sessionCloser != nil {
		if err := sessionCloser(); err != nil {
			logger.Warn("failed to close session store", "error", err)
		}
	}

	logger.Info("server stopped")
}

type storeSettings struct {
	Driver         string
	DataPath       string
	PostgresDSN    string
	MaxConns       int
	MinConns       int
	MaxLifetime    time.Duration
	MaxIdle        time.Duration
	HealthInterval time.Duration
	ConnectTimeout time.Duration
	AppName        string
}

func openStore(cfg storeSettings) (storage.Repository, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		if cfg.PostgresDSN != "" {
			driver = "postgres"
		} else {
			driver = "json"
		}
	}

	switch driver {
	case "json":
		return storage.NewStorage(cfg.DataPath)
	case "postgres":
		ctx := context.Background()
		if cfg.ConnectTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
			defer cancel()
		}
		return storage.NewPostgresRepository(ctx, storage.PostgresConfig{
			DSN:                 cfg.PostgresDSN,
			MaxConnections:      int32(cfg.MaxConns),
			MinConnections:      int32(cfg.MinConns),
			MaxConnLifetime:     cfg.MaxLifetime,
			MaxConnIdleTime:     cfg.MaxIdle,
			HealthCheckInterval: cfg.HealthInterval,
			ConnectTimeout:      cfg.ConnectTimeout,
			ApplicationName:     cfg.AppName,
		})
	default:
		return nil, unsupportedDriverError(driver)
	}
}

type sessionSettings struct {
	Driver   string
	Addr     string
	Username string
	Password string
	DB       int
}

func openSessionStore(cfg sessionSettings) (auth.SessionStore, func() error, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		if cfg.Addr != "" {
			driver = "redis"
		} else {
			driver = "memory"
		}
	}

	switch driver {
	case "memory":
		return auth.NewMemorySessionStore(), nil, nil
	case "redis":
		store, err := auth.NewRedisSessionStore(auth.RedisSessionConfig{
			Addr:     cfg.Addr,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, unsupportedDriverError(driver)
	}
}

type unsupportedDriverError string

func (e unsupportedDriverError) Error() string {
	return "unsupported driver " + strconv.Quote(string(e))
}

func resolvePostgresDSN(flagValue string) string {
	return firstNonEmpty(flagValue, os.Getenv("SHILOHNOVA_POSTGRES_DSN"), os.Getenv("DATABASE_URL"))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func resolveFloat(flagValue float64, envKey string) float64 {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.ParseFloat(strings.TrimSpace(env), 64); err == nil {
			return value
		}
	}
	return 0
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	return fallback
}
