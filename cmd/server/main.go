package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/justkalesh/foodhunt101-sub000/internal/api"
	"github.com/justkalesh/foodhunt101-sub000/internal/auth"
	"github.com/justkalesh/foodhunt101-sub000/internal/config"
	"github.com/justkalesh/foodhunt101-sub000/internal/notify"
	"github.com/justkalesh/foodhunt101-sub000/internal/service"
	"github.com/justkalesh/foodhunt101-sub000/internal/storage/sqlite"
	"github.com/justkalesh/foodhunt101-sub000/pkg/logging"
)

func main() {
	logging.Setup()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	var push notify.Push = notify.NopPush{}
	if cfg.NATSURL != "" {
		busPush, err := notify.NewBusPush(cfg.NATSURL, cfg.PushSubject)
		if err != nil {
			slog.Error("Failed to connect push bus", "url", cfg.NATSURL, "error", err)
			os.Exit(1)
		}
		defer busPush.Close()
		push = busPush
		slog.Info("Push bus connected", "url", cfg.NATSURL, "subject", cfg.PushSubject)
	} else {
		slog.Warn("NATS_URL not set, push notifications disabled")
	}

	notifier := notify.NewChatNotifier(store, push)
	svc := service.NewSplitService(store, notifier, service.WithTimeout(cfg.OpTimeout))

	go svc.RunSweeper(ctx, cfg.SweepInterval)

	jwtManager := auth.NewJWTManager(cfg.JWTSigningKey, cfg.TokenTTL)
	server := api.NewServer(svc, jwtManager, cfg.AllowedOrigins)

	// h2c allows HTTP/2 without TLS when a proxy terminates it upstream.
	handler := h2c.NewHandler(server.Router(), &http2.Server{})

	httpServer := &http.Server{Addr: cfg.Addr, Handler: handler}
	go func() {
		<-ctx.Done()
		slog.Info("Shutting down")
		_ = httpServer.Shutdown(context.Background())
	}()

	slog.Info("Server starting", "address", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
