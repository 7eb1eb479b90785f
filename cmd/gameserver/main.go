// Command gameserver runs the multiplayer session coordinator: it loads
// configuration, registers the bundled game kinds, and serves the
// WebSocket/HTTP transport until it receives an interrupt or TERM signal.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tkahng/gamecore/auth"
	"github.com/tkahng/gamecore/config"
	"github.com/tkahng/gamecore/coordinator"
	"github.com/tkahng/gamecore/game"
	"github.com/tkahng/gamecore/games"
	"github.com/tkahng/gamecore/games/connectfour"
	"github.com/tkahng/gamecore/games/gridrelay"
	"github.com/tkahng/gamecore/metrics"
	"github.com/tkahng/gamecore/transport"
)

var knownKinds = map[string]games.Constructor{
	"connectfour": connectfour.New,
	"gridrelay":   gridrelay.New,
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file overriding the defaults")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	registry := games.NewRegistry()
	for _, kind := range cfg.Kinds {
		ctor, ok := knownKinds[kind]
		if !ok {
			logger.Error("unknown game kind in config", "kind", kind)
			os.Exit(1)
		}
		registry.Register(kind, ctor)
	}

	pool := game.NewIDPool(cfg.MaxGames)

	var authenticator auth.Authenticator = auth.NoopAuthenticator{}
	if cfg.JWTSecret != "" {
		authenticator = auth.NewJWTAuthenticator([]byte(cfg.JWTSecret))
	}

	m := metrics.New()

	srv := transport.NewServer(nil, authenticator, cfg.AllowedOrigins, logger, m.Handler())
	coord := coordinator.New(pool, registry, srv.RoomBroadcaster(), logger, cfg.MaxFPS)
	srv.SetCoordinator(coord)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("gameserver starting", "addr", cfg.ListenAddr, "kinds", cfg.Kinds)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	coord.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}
	logger.Info("server stopped")
}
