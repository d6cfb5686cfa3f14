package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/monitoringhub/auth-service/internal/handlers"
	"github.com/monitoringhub/auth-service/internal/jwt"
	"github.com/monitoringhub/auth-service/internal/logger"
	"github.com/monitoringhub/auth-service/internal/middlewares"
	"github.com/monitoringhub/auth-service/internal/migrate"
	"github.com/monitoringhub/auth-service/internal/models"
	"github.com/monitoringhub/auth-service/internal/password"
	"github.com/monitoringhub/auth-service/internal/repositories"
	"github.com/monitoringhub/auth-service/internal/services"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// config holds all runtime configuration, loaded from the environment
// with optional overrides from a dotenv file.
type config struct {
	AppHost  string
	AppPort  string
	LogLevel string

	PGHost         string
	PGPort         int
	PGUser         string
	PGPassword     string
	PGDB           string
	PGMaxOpenConns int
	PGMaxIdleConns int
	MigrationsDir  string

	// Redis is optional; an empty host disables token revocation.
	RedisHost         string
	RedisPort         int
	RedisDB           int
	RedisPassword     string
	RedisPoolSize     int
	RedisMinIdleConns int

	// Kafka is optional; no brokers disables audit event export.
	KafkaBrokers []string
	KafkaTopic   string

	JWTSecretKey string
	JWTExpHours  int

	AdminUsername string
	AdminEmail    string
	AdminPassword string

	HashWorkers int
}

// @title auth-service API
// @version 1.0.0
// @description Authentication and user management service for the monitoring platform
// @host localhost:8080
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	printBuildInfo()
	configPath := parseFlags()

	cfg, err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Version: %s, Commit: %s, Build: %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// parseConfig loads environment variables from a file and returns the
// application configuration. Missing variables fall back to defaults
// suitable for local development; JWT_SECRET_KEY is the one variable a
// production deployment must always set.
func parseConfig(path string) (*config, error) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}
	getEnvInt := func(key string, defaultValue int) (int, error) {
		return strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	}

	cfg := &config{
		AppHost:  getEnv("APP_HOST", "localhost"),
		AppPort:  getEnv("APP_PORT", "8080"),
		LogLevel: getEnv("APP_LOG_LEVEL", "info"),

		PGHost:        getEnv("POSTGRES_HOST", "localhost"),
		PGUser:        getEnv("POSTGRES_USER", "user"),
		PGPassword:    getEnv("POSTGRES_PASSWORD", "password"),
		PGDB:          getEnv("POSTGRES_DB", "auth"),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		KafkaTopic: getEnv("KAFKA_TOPIC", "auth-events"),

		JWTSecretKey: getEnv("JWT_SECRET_KEY", "my_super_secret_key"),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@monitoring.local"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),
	}

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	var err error
	if cfg.PGPort, err = getEnvInt("POSTGRES_PORT", 5432); err != nil {
		return nil, err
	}
	if cfg.PGMaxOpenConns, err = getEnvInt("POSTGRES_MAX_OPEN_CONNS", 16); err != nil {
		return nil, err
	}
	if cfg.PGMaxIdleConns, err = getEnvInt("POSTGRES_MAX_IDLE_CONNS", 8); err != nil {
		return nil, err
	}
	if cfg.RedisPort, err = getEnvInt("REDIS_PORT", 6379); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RedisPoolSize, err = getEnvInt("REDIS_POOL_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.RedisMinIdleConns, err = getEnvInt("REDIS_MIN_IDLE_CONNS", 2); err != nil {
		return nil, err
	}
	if cfg.JWTExpHours, err = getEnvInt("JWT_EXP_HOURS", 24); err != nil {
		return nil, err
	}
	if cfg.HashWorkers, err = getEnvInt("HASH_WORKERS", services.DefaultHashWorkers); err != nil {
		return nil, err
	}

	return cfg, nil
}

// connectPostgres connects to PostgreSQL with bounded exponential retry,
// so the service survives the database coming up a few seconds later in
// a compose environment.
func connectPostgres(ctx context.Context, dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	var db *sqlx.DB

	operation := func() error {
		var err error
		db, err = sqlx.ConnectContext(ctx, "pgx", dsn)
		if err != nil {
			logger.Log.Warnw("postgres not ready, retrying", "err", err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	return db, nil
}

// run initializes the logger, storage, optional Redis and Kafka, wires
// the HTTP routes, and handles graceful shutdown.
func run(ctx context.Context, cfg *config) error {
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	defer logger.Sync()
	logger.Log.Infof("Logger initialized with level %s", cfg.LogLevel)

	// Apply schema migrations before serving traffic.
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.PGUser, cfg.PGPassword, cfg.PGHost, cfg.PGPort, cfg.PGDB)
	if err := migrate.Up(dsn, cfg.MigrationsDir); err != nil {
		return err
	}

	db, err := connectPostgres(ctx, dsn, cfg.PGMaxOpenConns, cfg.PGMaxIdleConns)
	if err != nil {
		return err
	}
	defer db.Close()

	tokenTTL := time.Duration(cfg.JWTExpHours) * time.Hour

	// Optional Redis for token revocation.
	var revocationRepo *repositories.TokenRevocationRepository
	var revocationChecker middlewares.RevocationChecker
	if cfg.RedisHost != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:         fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			PoolSize:     cfg.RedisPoolSize,
			MinIdleConns: cfg.RedisMinIdleConns,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer rdb.Close()
		revocationRepo = repositories.NewTokenRevocationRepository(rdb, tokenTTL)
		revocationChecker = revocationRepo
		logger.Log.Infow("token revocation enabled", "addr", rdb.Options().Addr)
	} else {
		logger.Log.Info("REDIS_HOST not set, token revocation disabled")
	}

	// Optional Kafka for audit event export.
	var kafkaWriter services.KafkaWriter
	if len(cfg.KafkaBrokers) > 0 {
		writer := &kafka.Writer{
			Addr:                   kafka.TCP(cfg.KafkaBrokers...),
			Topic:                  cfg.KafkaTopic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		}
		defer writer.Close()
		kafkaWriter = writer
		logger.Log.Infow("audit event export enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Log.Info("KAFKA_BROKERS not set, audit event export disabled")
	}

	// Initialize JWT service
	tokens := jwt.New(cfg.JWTSecretKey, tokenTTL)

	// Initialize repositories
	userReadRepo := repositories.NewUserReadRepository(db)
	userWriteRepo := repositories.NewUserWriteRepository(db)
	authLogWriteRepo := repositories.NewAuthLogWriteRepository(db)
	authLogReadRepo := repositories.NewAuthLogReadRepository(db)

	// Initialize services
	var revoker services.TokenRevoker
	if revocationRepo != nil {
		revoker = revocationRepo
	}
	authService := services.NewAuthService(
		userReadRepo, userWriteRepo,
		authLogWriteRepo, authLogReadRepo,
		password.New(), tokens, revoker, kafkaWriter,
		cfg.HashWorkers,
	)
	defer authService.WaitAudits()

	if err := authService.EnsureDefaultAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("default admin bootstrap failed: %w", err)
	}

	// Setup router
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middlewares.LoggingMiddleware(logger.Log))

	// Public routes
	r.Post("/register", handlers.NewRegisterHandler(authService))
	r.Post("/login", handlers.NewLoginHandler(authService))
	r.Get("/health", handlers.NewHealthHandler())

	// Protected routes: authenticate first, then authorize.
	authMiddleware := middlewares.AuthMiddleware(tokens, revocationChecker)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/verify", handlers.NewVerifyHandler())
		r.Get("/profile", handlers.NewProfileHandler())
		r.Post("/logout", handlers.NewLogoutHandler(authService))
	})

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middlewares.RequireRole(models.RoleAdmin))
		r.Get("/admin/users", handlers.NewListUsersHandler(authService))
		r.Get("/admin/logs", handlers.NewListLogsHandler(authService))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://%s:%s/swagger/doc.json", cfg.AppHost, cfg.AppPort)),
	))

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort),
		Handler: r,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go func() {
		logger.Log.Infof("HTTP server listening on %s:%s", cfg.AppHost, cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctxShutdown.Done():
		logger.Log.Info("Shutdown signal received, stopping HTTP server...")
	case serveErr := <-errChan:
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("HTTP server shutdown error", "error", err)
	}

	logger.Log.Info("HTTP server stopped gracefully")
	return nil
}
