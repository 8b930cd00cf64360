package graceful

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yield-service/yield_service/pkg/logger"
)

// Shutdowner is a component with a bounded stop routine
type Shutdowner interface {
	Shutdown(timeout time.Duration) error
}

// ShutdownFunc adapts a plain function to Shutdowner
type ShutdownFunc func(timeout time.Duration) error

func (f ShutdownFunc) Shutdown(timeout time.Duration) error { return f(timeout) }

// ShutdownManager stops workers, then the HTTP server, then closes resources
type ShutdownManager struct {
	server      *http.Server
	closers     []namedCloser
	shutdowners []Shutdowner
	timeout     time.Duration
	logger      *logger.Logger
}

type namedCloser struct {
	name   string
	closer io.Closer
}

func NewShutdownManager(server *http.Server, timeout time.Duration, logger *logger.Logger) *ShutdownManager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		server:  server,
		timeout: timeout,
		logger:  logger,
	}
}

// Register adds a component stopped before the HTTP server
func (sm *ShutdownManager) Register(s Shutdowner) {
	sm.shutdowners = append(sm.shutdowners, s)
}

// RegisterCloser adds a resource closed after the HTTP server (db, redis)
func (sm *ShutdownManager) RegisterCloser(name string, c io.Closer) {
	sm.closers = append(sm.closers, namedCloser{name: name, closer: c})
}

// WaitForShutdown blocks until SIGINT/SIGTERM and then shuts everything down
func (sm *ShutdownManager) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	sm.logger.Info("Shutting down gracefully...", "signal", sig.String())
	sm.Shutdown()
}

// Shutdown runs the shutdown sequence immediately
func (sm *ShutdownManager) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	for _, s := range sm.shutdowners {
		if err := s.Shutdown(sm.timeout); err != nil {
			sm.logger.Warn("Component shutdown error", "error", err)
		}
	}

	if sm.server != nil {
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.Error("Server forced shutdown", "error", err)
		}
	}

	for _, c := range sm.closers {
		if err := c.closer.Close(); err != nil {
			sm.logger.Warn("Resource close error", "resource", c.name, "error", err)
		}
	}

	sm.logger.Info("Shutdown complete")
}
