package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vikinglords/vikinglords-server/internal/config"
	"github.com/vikinglords/vikinglords-server/internal/game"
	"github.com/vikinglords/vikinglords-server/internal/game/deck"
	"github.com/vikinglords/vikinglords-server/internal/lobby"
	"github.com/vikinglords/vikinglords-server/internal/repository"
	"github.com/vikinglords/vikinglords-server/internal/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting Viking Lords server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize game store
	store, closeStore, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to open game store", zap.Error(err))
	}
	defer closeStore()

	seed := cfg.Game.Seed
	if seed == 0 {
		seed = deck.NewSeed()
	}
	logger.Info("game store initialized",
		zap.String("driver", cfg.Database.Driver),
		zap.Int64("seed", seed),
	)

	recorder := game.NewReplayRecorder(logger, cfg.Game.ReplayDir,
		game.WithMaxSteps(cfg.Game.ReplayMaxSteps),
	)
	go recorder.RunEviction(ctx, evictionInterval(cfg.Game.ReplayIdleTimeout), cfg.Game.ReplayIdleTimeout)

	engine := game.NewEngine(store, logger,
		game.WithShuffler(deck.NewRandom(seed)),
		game.WithReplayRecorder(recorder),
	)
	lobbyMgr := lobby.NewManager(engine, cfg.Game.MaxPlayers, logger)
	logger.Info("lobby initialized", zap.Int("max_players", cfg.Game.MaxPlayers))

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(server.ChainUnaryInterceptors(
			server.RecoveryInterceptor(logger),
			server.LoggingInterceptor(logger),
			server.IdentityInterceptor(),
		)),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    cfg.Server.GRPC.KeepaliveTime,
			Timeout: cfg.Server.GRPC.KeepaliveTimeout,
		}),
		grpc.MaxConcurrentStreams(uint32(cfg.Server.GRPC.MaxConcurrentStreams)),
	)
	server.RegisterGameServiceServer(grpcServer, server.NewGameServer(lobbyMgr, engine, logger))

	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}

	// Start gRPC server
	go func() {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	// Start WebSocket server
	hub := server.NewHub(engine, logger)
	go hub.Run(ctx)
	go func() {
		if wsErr := server.StartWebSocketServer(ctx, cfg.Server.WebSocket, hub, logger); wsErr != nil {
			logger.Error("WebSocket server error", zap.Error(wsErr))
		}
	}()

	logger.Info("Viking Lords server initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(cfg.Server.ShutdownTimeout):
		logger.Warn("graceful stop timed out", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
		grpcServer.Stop()
	}

	logger.Info("Viking Lords server stopped")
}

// evictionInterval sweeps idle replays a few times per timeout, at most
// every ten minutes.
func evictionInterval(idle time.Duration) time.Duration {
	return max(min(idle/4, 10*time.Minute), time.Second)
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
