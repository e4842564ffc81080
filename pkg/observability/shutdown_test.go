package observability

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShutdownManager_DefaultTimeout(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	sm := NewShutdownManager(logger, 0)
	assert.Equal(t, DefaultShutdownTimeout, sm.shutdownTimeout)

	sm = NewShutdownManager(logger, time.Second)
	assert.Equal(t, time.Second, sm.shutdownTimeout)
}

func TestShutdownManager_RunsHooksInOrder(t *testing.T) {
	sm := NewShutdownManager(NewLogger(DebugLevel, &bytes.Buffer{}), time.Second)

	var order []string
	sm.RegisterShutdownFunc("first", func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	sm.RegisterShutdownFunc("second", func(context.Context) error {
		order = append(order, "second")
		return nil
	})

	require.NoError(t, sm.Shutdown(context.Background()))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestShutdownManager_CollectsErrors(t *testing.T) {
	sm := NewShutdownManager(NewLogger(InfoLevel, &bytes.Buffer{}), time.Second)

	errA := errors.New("a failed")
	ran := false
	sm.RegisterShutdownFunc("a", func(context.Context) error { return errA })
	sm.RegisterShutdownFunc("b", func(context.Context) error {
		ran = true
		return nil
	})

	err := sm.Shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.Contains(t, err.Error(), "a: a failed")
	assert.True(t, ran, "later hooks still run")
}

func TestShutdownManager_StopsServers(t *testing.T) {
	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	ts.Start()
	defer ts.Close()

	sm := NewShutdownManager(NewLogger(InfoLevel, &bytes.Buffer{}), time.Second, ts.Config)
	require.NoError(t, sm.Shutdown(context.Background()))

	_, err := http.Get(ts.URL)
	assert.Error(t, err)
}

func TestShutdownManager_WaitForShutdown(t *testing.T) {
	sm := NewShutdownManager(NewLogger(InfoLevel, &bytes.Buffer{}), time.Second)

	called := make(chan struct{})
	sm.RegisterShutdownFunc("hook", func(ctx context.Context) error {
		assert.NoError(t, ctx.Err())
		close(called)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sm.WaitForShutdown(ctx) }()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForShutdown did not return")
	}
	<-called
}

func TestShutdownManager_ExpiredContextSkipsHooks(t *testing.T) {
	sm := NewShutdownManager(NewLogger(InfoLevel, &bytes.Buffer{}), time.Second)

	ran := false
	sm.RegisterShutdownFunc("late", func(context.Context) error {
		ran = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sm.Shutdown(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}
