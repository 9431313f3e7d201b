package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/artesarh/rpb/reporting/auth"
	"github.com/artesarh/rpb/reporting/backup"
	"github.com/artesarh/rpb/reporting/schema"
	"github.com/artesarh/rpb/reporting/services"
	"github.com/artesarh/rpb/utils/logging"
	"github.com/caarlos0/env/v10"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

type reportingEnv struct {
	DatabaseUri string `env:"DATABASE_URI,required"`
	JwtSecret   string `env:"JWT_SECRET,required"`

	AdminUsername string `env:"ADMIN_USERNAME,required"`
	AdminPassword string `env:"ADMIN_PASSWORD,required"`

	AccessTokenTtl  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"24h"`
	RefreshTokenTtl time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`
	TokenRateLimit  int           `env:"TOKEN_RATE_LIMIT" envDefault:"20"`

	LogDir string `env:"LOG_DIR" envDefault:"logs"`

	BackupDir      string `env:"BACKUP_DIR" envDefault:"db/backups"`
	BackupSchedule string `env:"BACKUP_SCHEDULE" envDefault:"0 */2 * * *"`
	BackupKeep     int    `env:"BACKUP_KEEP" envDefault:"20"`

	CorsOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:8000,http://127.0.0.1:8000"`

	PageSize    int `env:"PAGE_SIZE" envDefault:"100"`
	MaxPageSize int `env:"MAX_PAGE_SIZE" envDefault:"1000"`
}

/**
 * ==========================================================================
 * ==== All variables used by the reporting server must be loaded here.  ====
 * ==== This keeps the configuration surface in one place.               ====
 * ==========================================================================
 */
func loadEnv(envFile string) (*reportingEnv, error) {
	if envFile != "" {
		slog.Info("loading env from file", "file", envFile)
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("error loading .env file '%v': %w", envFile, err)
		}
	}

	cfg := &reportingEnv{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initDb(uri string) (*gorm.DB, error) {
	db, err := schema.Open(uri)
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(schema.Tables...); err != nil {
		return nil, fmt.Errorf("error migrating db schema: %w", err)
	}

	return db, nil
}

// The defer calls don't run if we exit with log.Fatalf, so errors are
// returned here and the process fails in main.
func runApp() error {
	envFile := flag.String("env", "", "File to load env variables from. If not specified will just load them from the environment variables already defined.")
	port := flag.Int("port", 8000, "Port to run server on")
	skipBackups := flag.Bool("skip_backups", false, "If specified the periodic database backup is not scheduled.")

	flag.Parse()

	env, err := loadEnv(*envFile)
	if err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}

	logFile, err := logging.OpenLogFile(env.LogDir, "reporting.log")
	if err != nil {
		return err
	}
	defer logFile.Close()

	auditLog, err := logging.OpenLogFile(env.LogDir, "audit.log")
	if err != nil {
		return err
	}
	defer auditLog.Close()

	slog.SetDefault(logging.NewLogger(logFile, "reporting"))
	slog.Info("logging initialized", "log_file", logFile.Name(), "code", logging.SYSTEM)

	db, err := initDb(env.DatabaseUri)
	if err != nil {
		return err
	}

	identityProvider, err := auth.NewBasicIdentityProvider(
		db,
		auth.NewAuditLogger(auditLog),
		auth.BasicProviderArgs{
			Secret:          []byte(env.JwtSecret),
			AdminUsername:   env.AdminUsername,
			AdminPassword:   env.AdminPassword,
			AccessTokenTtl:  env.AccessTokenTtl,
			RefreshTokenTtl: env.RefreshTokenTtl,
		},
	)
	if err != nil {
		return fmt.Errorf("error creating identity provider: %w", err)
	}

	if !*skipBackups {
		backuper := backup.New(db, backup.Config{Dir: env.BackupDir, Keep: env.BackupKeep, DatabaseUri: env.DatabaseUri})
		scheduler, err := backup.NewScheduler(backuper, env.BackupSchedule)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	reporting := services.NewReporting(db, identityProvider, services.Options{
		PageSize:       env.PageSize,
		MaxPageSize:    env.MaxPageSize,
		TokenRateLimit: env.TokenRateLimit,
	})

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   env.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Mount("/", reporting.Routes())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutdown signal received", "code", logging.SYSTEM)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		close(idleConnsClosed)
	}()

	slog.Info("starting server", "port", *port, "code", logging.SYSTEM)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve returned error: %w", err)
	}

	<-idleConnsClosed
	slog.Info("server stopped", "code", logging.SYSTEM)

	return nil
}

func main() {
	if err := runApp(); err != nil {
		log.Fatalf("reporting server failed: %v", err)
	}
}
