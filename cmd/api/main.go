package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-tutor/backend/internal/bootstrap"
	"github.com/zhouzirui/z-tutor/backend/internal/config"
	"github.com/zhouzirui/z-tutor/backend/internal/handler"
	"github.com/zhouzirui/z-tutor/backend/internal/logger"
	"github.com/zhouzirui/z-tutor/backend/internal/middleware"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	l, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer l.Sync()
	zap.ReplaceGlobals(l)

	if envErr != nil {
		l.Info("no .env file loaded, continuing with system environment variables only", zap.Error(envErr))
	}

	app, err := bootstrap.New(ctx, cfg, nil, l)
	if err != nil {
		l.Fatal("failed to initialize tutor", zap.Error(err))
	}
	defer app.Close()

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute)
	router := handler.NewRouter(app.Personas, app.Tutor, limiter, l)

	startServer(ctx, cfg.Server, router, l)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, l *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	l.Info("Z Tutor backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		l.Fatal("server error", zap.Error(err))
	}
	l.Info("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
