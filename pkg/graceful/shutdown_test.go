package graceful

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yield-service/yield_service/pkg/logger"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestShutdown_Order(t *testing.T) {
	var order []string

	sm := NewShutdownManager(&http.Server{}, time.Second, logger.NewNop())
	sm.Register(ShutdownFunc(func(timeout time.Duration) error {
		assert.Equal(t, time.Second, timeout)
		order = append(order, "worker")
		return nil
	}))
	sm.Register(ShutdownFunc(func(time.Duration) error {
		order = append(order, "failing worker")
		return errors.New("stuck")
	}))
	sm.RegisterCloser("redis", closerFunc(func() error {
		order = append(order, "redis")
		return nil
	}))
	sm.RegisterCloser("database", closerFunc(func() error {
		order = append(order, "database")
		return errors.New("already closed")
	}))

	sm.Shutdown()

	assert.Equal(t, []string{"worker", "failing worker", "redis", "database"}, order)
}

func TestNewShutdownManager_DefaultTimeout(t *testing.T) {
	sm := NewShutdownManager(nil, 0, logger.NewNop())
	assert.Equal(t, 30*time.Second, sm.timeout)

	// No server registered
	sm.Shutdown()
}
