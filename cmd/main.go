package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chat-relay/internal"
	"chat-relay/relay"
	"chat-relay/runtime/workers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

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

	// 2. Worker count: one relay instance per CPU unless pinned. Replicas
	// need shared listening ports; without that only one instance can bind.
	numberOfWorkers := config.NumberOfWorkers
	if numberOfWorkers == 0 {
		numberOfWorkers = runtime.NumCPU()
	}
	if numberOfWorkers > 1 && !internal.SupportsPortSharing() {
		log.Warn("Port sharing unavailable on this platform, running a single worker",
			"requested", numberOfWorkers)
		numberOfWorkers = 1
	}

	opts := relay.Options{
		Host:                 config.Host,
		HTTPPort:             config.HTTPPort,
		WSPort:               config.WSPort,
		BufferSize:           config.BufferSize,
		ConnectionBufferSize: config.ConnectionBufferSize,
		CensoredChar:         []rune(config.ModerationCharReplacement)[0],
	}

	// 3. Supervision: every instance is restarted on crash with fresh state
	sup := workers.NewSupervisor(log, config.RestartInterval)
	for i := 0; i < numberOfWorkers; i++ {
		sup.Add(relay.NewInstance(log.With("worker", i), opts))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting relay",
		"workers", numberOfWorkers,
		"http_port", config.HTTPPort,
		"ws_port", config.WSPort)

	sup.Run(ctx)
	log.Info("Program stopped cleanly")
	return nil
}
