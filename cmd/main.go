package main

import (
	"chat-presence/api"
	"chat-presence/auth"
	"chat-presence/observability"
	"chat-presence/repositories"
	"chat-presence/runtime"
	"chat-presence/runtime/workers"
	"chat-presence/services"
	"chat-presence/ws"
	"context"
	goerrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const serviceName = "chat-presence"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and returns only once the process can exit.
// Deferred cleanups (database, hub) run before main decides the exit code.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	if !strings.EqualFold(config.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Presence core, supervised so a panic in the event loop only restarts it
	metrics := observability.NewMetrics("chat")
	registry := runtime.NewRegistry()
	hub := runtime.NewHub(log, registry,
		runtime.NewPresence(log, registry, metrics, config.DeliveryTimeout),
		runtime.NewSignalRouter(log, registry, metrics, config.DeliveryTimeout),
		metrics, config.HubBufferSize)
	defer hub.Stop()

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(hub, workers.NewHeartbeatWorker(log, config.HeartbeatInterval, hub, registry, metrics))
	supervisorDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supervisorDone)
	}()

	// 5. HTTP surface
	tokens := auth.NewTokens(config.JWTSecret, config.AuthTokenDuration)
	authenticator := auth.NewRequestAuthenticator(tokens, config.AllowQueryIdentity)
	if config.AllowQueryIdentity {
		log.Warn("Query identities are accepted, do not run like this in production")
	}
	var origins []string
	if config.ClientURL != "" {
		origins = []string{config.ClientURL}
	}
	socket := ws.NewHandler(log, authenticator, hub, ws.ConnectionConfig{
		BufferSize:   config.ConnectionBufferSize,
		PingInterval: config.PingInterval,
		WriteTimeout: config.WriteTimeout,
	}, originPatterns(origins))
	repository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	defer func() { _ = repository.Close() }()
	chat := services.NewChatService(log, repository, hub)
	server := api.NewServer(log, chat, authenticator, socket, metrics, origins)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:              address,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		// Websocket handlers derive from ctx so they end with the process.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// 6. gRPC health probe
	healthAddress := fmt.Sprintf("%s:%d", config.Host, config.HealthPort)
	listener, err := net.Listen("tcp", healthAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", healthAddress, err)
	}
	healthServer := health.NewServer()
	grpcServer := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)

	errChan := make(chan error, 2)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !goerrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	go func() {
		log.Info("Starting health server", "address", healthAddress)
		if err := grpcServer.Serve(listener); err != nil && !goerrors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC health server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case runErr = <-errChan:
		log.Error("Server failed, shutting down", "error", runErr)
	}

	// 8. Final Cleanup, forced once the deadline expires
	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced shutdown", "error", err)
		_ = httpServer.Close()
	}
	grpcServer.GracefulStop()
	stop()
	sup.Stop()
	select {
	case <-supervisorDone:
	case <-shutdownCtx.Done():
		log.Warn("Supervisor did not stop in time")
	}
	hub.Stop()
	log.Info("Program stopped cleanly")
	return runErr
}

// originPatterns turns allowed origins into the host patterns expected by the websocket handshake.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, origin := range origins {
		host := origin
		if i := strings.Index(host, "://"); i >= 0 {
			host = host[i+3:]
		}
		patterns = append(patterns, strings.TrimSuffix(host, "/"))
	}
	return patterns
}
