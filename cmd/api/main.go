// Command api runs the boosting marketplace HTTP and websocket server.
//
//	@title						Boosting Marketplace API
//	@version					1.0
//	@description				Order lifecycle, booster wallets and order-scoped chat.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
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

	"golang.org/x/sync/errgroup"

	"github.com/boostly/boosting-marketplace/internal/api"
	"github.com/boostly/boosting-marketplace/internal/core/service"
	"github.com/boostly/boosting-marketplace/internal/infrastructure/config"
	"github.com/boostly/boosting-marketplace/internal/infrastructure/queue"
	"github.com/boostly/boosting-marketplace/internal/infrastructure/realtime"
	"github.com/boostly/boosting-marketplace/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "boosting-marketplace",
	})

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("storage initialization error: %w", err)
	}

	users := service.NewUserService(st.users, logger.Component("users"))
	if cfg.Admin.Enabled() {
		if _, err := users.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			_ = st.close(context.Background())
			return fmt.Errorf("admin bootstrap error: %w", err)
		}
	}

	hub := realtime.NewHub(realtime.Config{
		WriteWait:      cfg.Websocket.WriteWait,
		PongWait:       cfg.Websocket.PongWait,
		MaxMessageSize: cfg.Websocket.MaxMessageSize,
		SendBuffer:     cfg.Websocket.SendBuffer,
		AllowedOrigins: cfg.Websocket.AllowedOrigins,
	}, logger.Component("realtime"))

	events := service.NewOrderEventService(st.events, hub, logger.Component("events"))
	dispatcher := queue.NewDispatcher(cfg.DispatcherWorkers, events, logger.Component("dispatcher"))

	router := api.NewRouter(api.Dependencies{
		Auth:      service.NewAuthService(st.users, cfg.JWTSecret, cfg.TokenTTL),
		Lifecycle: service.NewLifecycleService(st.orders, st.users, dispatcher, logger.Component("lifecycle")),
		Orders:    service.NewOrderService(st.orders, logger.Component("orders")),
		Wallet:    service.NewWalletService(st.users, logger.Component("wallet")),
		Users:     users,
		Chat:      service.NewChatService(st.orders, st.messages, hub, st.dedup, logger.Component("chat")),
		Sockets:   hub,
		Pingers:   st.pingers,
		JWTSecret: cfg.JWTSecret,
		Log:       log,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return dispatcher.Run(ctx)
	})

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		hub.Shutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		log.Info().Msg("server stopped gracefully")
		return nil
	})

	err = g.Wait()
	if cerr := st.close(context.Background()); cerr != nil {
		log.Error().Err(cerr).Msg("closing storage")
	}
	return err
}
