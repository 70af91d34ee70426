// Package main provides the game server binary that runs the combat, reward
// and leveling engine behind the gRPC game service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/realm/internal/config"
	"github.com/cory-johannsen/realm/internal/gameserver"
	"github.com/cory-johannsen/realm/internal/observability"
	"github.com/cory-johannsen/realm/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, cfg.Server.Type)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting game server",
		zap.String("mode", cfg.Server.Mode),
		zap.String("grpc_addr", cfg.GameServer.Addr()),
	)

	app, cleanup, err := initializeApp(ctx, cfg, observability.Component(logger, "engine"))
	if err != nil {
		logger.Fatal("initializing engine", zap.Error(err))
	}
	defer cleanup()

	app.Populate(ctx)

	healthSrv := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	gameserver.RegisterGameServiceServer(grpcServer, app.Service)

	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", cfg.GameServer.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.GameServer.Addr(), err)
			}
			logger.Info("gRPC server listening",
				zap.String("addr", lis.Addr().String()),
			)
			healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
			healthSrv.SetServingStatus(gameserver.GameServiceName, healthpb.HealthCheckResponse_SERVING)
			return grpcServer.Serve(lis)
		},
		StopFn: func() {
			healthSrv.Shutdown()
			grpcServer.GracefulStop()
		},
	})

	lifecycle.Add("ticks", server.NewLoopService(app.Ticks.Start))

	if pool := app.Stores.Pool; pool != nil {
		lifecycle.Add("postgres", server.NewLoopService(func(ctx context.Context) {
			go pool.Watch(ctx, 30*time.Second, 5*time.Second, func(healthy bool) {
				status := healthpb.HealthCheckResponse_SERVING
				if !healthy {
					status = healthpb.HealthCheckResponse_NOT_SERVING
				}
				healthSrv.SetServingStatus("", status)
				healthSrv.SetServingStatus(gameserver.GameServiceName, status)
			})
		}))
	}

	logger.Info("game server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("grpc_addr", cfg.GameServer.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
