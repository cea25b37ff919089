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

	"waitroom/domain/event"
	"waitroom/internal"
	"waitroom/observability"
	"waitroom/protocol"
	"waitroom/registry"
	"waitroom/transport"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so that defers always execute and the
// entry point stays testable.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Event bus & observers
	bus := event.NewBus(log)
	activity := event.NewRoomActivityHandler(log, event.NewCounter())
	for _, t := range []event.Type{
		event.RoomCreatedType,
		event.RoomJoinedType,
		event.RoomExitedType,
		event.RoomReadyType,
	} {
		bus.Subscribe(t, activity)
	}

	monitor, err := observability.NewMonitor(log)
	if err != nil {
		return fmt.Errorf("monitor setup failed: %w", err)
	}
	monitor.Attach(bus)

	// 3. Room core
	reg := registry.New()
	dispatcher := protocol.NewDispatcher(log, reg, bus)
	wsServer := transport.NewServer(log, dispatcher, bus)

	// 4. Debug surface
	internal.StartDebugServer(log, config.DebugPort, monitor.Stats)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. HTTP server hosting the websocket endpoint
	mux := http.NewServeMux()
	mux.Handle(config.Path, wsServer)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting waiting-room server", "address", address, "path", config.Path)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	log.Info("Program stopped cleanly")

	return nil
}
