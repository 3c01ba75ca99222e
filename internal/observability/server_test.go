// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package observability

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, ready ReadinessChecker, opts ...Option) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0", ready, opts...)
	_, err := server.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	return server
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec,noctx // test URL
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_DefaultMetrics(t *testing.T) {
	server := startServer(t, nil)
	require.NotEmpty(t, server.Addr())

	status, body := get(t, "http://"+server.Addr()+"/metrics")

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "# TYPE")
	assert.Contains(t, body, "go_")
}

func TestServer_CustomGatherer(t *testing.T) {
	reg := prometheus.NewRegistry()
	loads := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "widgetdeck_test_loads_total",
		Help: "Loads seen by the test",
	})
	reg.MustRegister(loads)
	loads.Add(3)

	server := startServer(t, nil, WithGatherer(reg))

	_, body := get(t, "http://"+server.Addr()+"/metrics")

	assert.Contains(t, body, "widgetdeck_test_loads_total 3")
	assert.NotContains(t, body, "go_goroutines")
}

func TestServer_Liveness(t *testing.T) {
	server := startServer(t, func() bool { return false })

	status, body := get(t, "http://"+server.Addr()+"/healthz/liveness")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", strings.TrimSpace(body))
}

func TestServer_Readiness(t *testing.T) {
	var ready atomic.Bool
	server := startServer(t, ready.Load)
	url := "http://" + server.Addr() + "/healthz/readiness"

	status, body := get(t, url)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "not ready", strings.TrimSpace(body))

	ready.Store(true)

	status, body = get(t, url)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", strings.TrimSpace(body))
}

func TestServer_ReadinessWithNilChecker(t *testing.T) {
	server := startServer(t, nil)

	status, _ := get(t, "http://"+server.Addr()+"/healthz/readiness")

	assert.Equal(t, http.StatusOK, status)
}

func TestServer_DoubleStartFails(t *testing.T) {
	server := startServer(t, nil)

	_, err := server.Start()

	assert.Error(t, err)
}

func TestServer_StartFailsOnBusyAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	server := NewServer(ln.Addr().String(), nil)
	_, err = server.Start()
	require.Error(t, err)

	// A failed start leaves the server stoppable and restartable.
	assert.NoError(t, server.Stop(context.Background()))
}

func TestServer_StopIdempotent(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)

	assert.NoError(t, server.Stop(context.Background()))
	assert.NoError(t, server.Stop(context.Background()))
}

func TestServer_ErrorChannelClosesOnShutdown(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)
	errCh, err := server.Start()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))

	select {
	case err, ok := <-errCh:
		assert.False(t, ok, "channel should close without an error, got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("error channel was not closed")
	}
}
