// Package server initializes and runs the application: it opens the
// database, applies migrations, wires the services and serves the HTTP API
// until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/labstack/echo/v4"

	"github.com/deepdive-club/deepdive-api/internal/logging"
	"github.com/deepdive-club/deepdive-api/internal/server/auth"
	"github.com/deepdive-club/deepdive-api/internal/server/config"
	"github.com/deepdive-club/deepdive-api/internal/server/httpapi"
	"github.com/deepdive-club/deepdive-api/internal/server/repositories/repomanager"
	"github.com/deepdive-club/deepdive-api/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	router *httpapi.Router
}

// logMailer stands in for the external delivery service: it records the
// reset link instead of sending it. Real transport is wired in deployment.
type logMailer struct {
	logger logging.Logger
}

func (m *logMailer) SendPasswordReset(ctx context.Context, email string, userID string, token string) error {
	m.logger.Info(ctx, "password reset link issued", "email", email, "user_id", userID, "token", token)
	return nil
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	tokens := auth.NewManager([]byte(cfg.SecretKey), cfg.ValidIssuer, cfg.ValidAudience, cfg.AccessTokenValidityDuration)

	authService := services.NewAuthService(db, rm, tokens, logger)
	resetService := services.NewPasswordResetService(db, rm, &logMailer{logger: logger}, logger)
	documentService := services.NewDocumentService(db, rm, cfg)

	router := httpapi.NewRouter(
		httpapi.NewAuthHandler(authService, resetService, logger),
		httpapi.NewDocumentHandler(documentService, logger),
		httpapi.JWTMiddleware(tokens),
	)

	return &App{config: cfg, logger: logger, db: db, router: router}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP until the context is cancelled, then shuts the server
// down gracefully and closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	e := echo.New()
	app.router.Setup(e)

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "starting http server", "addr", app.config.EndpointAddrHTTP)
		if err := e.Start(app.config.EndpointAddrHTTP); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "http shutdown error", "error", err.Error())
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(shutdownCtx, "db close error", "error", err.Error())
	}
	return nil
}
