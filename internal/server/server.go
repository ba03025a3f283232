package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/akolanti/filebook/internal/adapter/utils"
	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/handlers"
	"github.com/akolanti/filebook/internal/middleware"
	"github.com/akolanti/filebook/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

var (
	server  *http.Server
	_logger = logger_i.NewLogger("Server")
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

// NewRouter mounts the API behind the middleware chain.
func NewRouter(h *handlers.Handler, m *middleware.Middleware) *chi.Mux {
	r := utils.NewRouter()

	r.Get("/healthz", m.Public(handlers.GetHandler))

	r.Post("/upload", m.Wrap(h.Upload))
	r.Post("/ask", m.Wrap(h.Ask))
	r.Post("/ask/stream", m.Wrap(h.AskStream))

	r.Route("/collections", func(r chi.Router) {
		r.Post("/", m.Wrap(h.CreateCollection))
		r.Get("/", m.Wrap(h.ListCollections))
		r.Delete("/{id}", m.Wrap(h.DeleteCollection))
		r.Get("/{id}/documents", m.Wrap(h.ListDocuments))
		r.Delete("/{id}/documents/{docId}", m.Wrap(h.DeleteDocument))
		r.Get("/{id}/messages", m.Wrap(h.Messages))
	})
	r.Get("/usage", m.Wrap(h.Usage))
	return r
}

func CreateServer(listenAddr string, handler http.Handler) {
	server = &http.Server{
		Addr:         listenAddr,
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		if server != nil {
			server.SetKeepAlivesEnabled(false)
			if err := server.Shutdown(ctx); err != nil {
				_logger.Error("Could not shutdown gracefully", "error", err)
			}
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully shut down")
	case <-ctx.Done():
		_logger.Error("Force shut down")
		os.Exit(1)
	}
}
