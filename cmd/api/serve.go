package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/akolanti/filebook/internal/auth"
	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/handlers"
	"github.com/akolanti/filebook/internal/middleware"
	"github.com/akolanti/filebook/internal/server"
	"github.com/akolanti/filebook/pkg/logger_i"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := logger_i.NewLogger("main")

	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		settings.ListenAddr = listenAddr
	}

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	stopWorkerChannel := make(chan bool)
	var workerWaitGroup sync.WaitGroup

	a, err := buildApp(serviceContext, settings, stopWorkerChannel, &workerWaitGroup)
	if err != nil {
		logger.Error("One or more external services failed to initialize. Shutting down.", "error", err)
		return err
	}

	limiter := middleware.NewDefaultIPRateLimiter()
	go limiter.RunSweeper(serviceContext, time.Minute)

	h := handlers.NewHandler(a.service, a.ingestor, a.library, settings.Ingest.MaxUploadSize)
	router := server.NewRouter(h, middleware.New(auth.NewVerifier(settings.JWTSecret), limiter))

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	go server.ShutDownHandler(server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	})
	go server.CreateServer(settings.ListenAddr, router)

	<-stopExecution
	logger.Info("Server stopped")
	return nil
}
