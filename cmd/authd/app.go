package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/nkiryanov/authd/internal/db"
	"github.com/nkiryanov/authd/internal/handlers"
	"github.com/nkiryanov/authd/internal/logger"
	"github.com/nkiryanov/authd/internal/repository/postgres"
	"github.com/nkiryanov/authd/internal/service/auth"
	"github.com/nkiryanov/authd/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/authd/internal/service/seeder"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	reaper *auth.Reaper
}

func NewServerApp(ctx context.Context) (*ServerApp, error) {
	c := NewConfig()
	if err := c.LoadDotEnv(os.Getwd); err != nil {
		return nil, fmt.Errorf("error while loading .env file. Err: %w", err)
	}
	c.LoadEnv(os.Getenv)
	if err := c.ParseFlags(os.Args[1:]); err != nil {
		return nil, err
	}

	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger. Err: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		AccessSecretKey:  c.AccessSecretKey,
		RefreshSecretKey: c.RefreshSecretKey,
		Alg:              c.Algorithm,
		AccessTTL:        c.AccessTokenTTL,
		RefreshTTL:       c.RefreshTokenTTL,
	}, storage.Refresh())
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	authService, err := auth.NewService(auth.Config{}, tokenManager, storage.User())
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	// Seed default accounts
	s := seeder.New(nil, storage.User(), logger)
	err = s.Seed(ctx,
		seeder.Account{Email: c.AdminEmail, Password: c.AdminPassword},
		seeder.Account{Email: c.GuestEmail, Password: c.GuestPassword},
	)
	if err != nil {
		return nil, fmt.Errorf("error while seeding default users. Err: %w", err)
	}

	mux := handlers.NewRouter(authService, authService, logger)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		reaper:     auth.NewReaper(c.ReapInterval, storage.Refresh(), logger),
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go s.reaper.Run(srvCtx)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
