package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/fretboard/internal/api"
	"github.com/lalith-99/fretboard/internal/app"
	"github.com/lalith-99/fretboard/internal/config"
	"github.com/lalith-99/fretboard/internal/observ"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ---------------------------------------------------------------
	// 1. Config and logging
	// ---------------------------------------------------------------
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	flush, err := observ.InitSentry(cfg.SentryDSN, cfg.Env)
	if err != nil {
		return err
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------------------------------------------------------
	// 2. Backing services. The schema is applied on every start; it
	// only creates what is missing.
	// ---------------------------------------------------------------
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.DB.Migrate(ctx); err != nil {
		return err
	}

	// ---------------------------------------------------------------
	// 3. HTTP
	// ---------------------------------------------------------------
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Users:         a.Stores.Users,
		Runs:          a.Stores.Runs,
		Guitars:       a.Stores.Guitars,
		Notes:         a.Stores.Notes,
		Notifications: a.Stores.Notifications,
		Clients:       a.Stores.Clients,
		Tracking:      a.Tracking,
		Callables:     a.Callables,
		Hooks:         a.Hooks,
		Publisher:     a.Publisher,
		JWTSecret:     cfg.JWTSecret,
		TokenTTL:      cfg.JWTTTL,
		WSPongWait:    cfg.WSPongWait,
		Health:        a.DB,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting fretboard",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
