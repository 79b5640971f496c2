package commands

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/servreg"
)

func TestRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	servreg.NewMetrics(reg)

	state := servreg.StateConstructed
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(newRouter("/metrics", reg, func() servreg.State { return state }, logger))
	t.Cleanup(srv.Close)

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	t.Run("liveness", func(t *testing.T) {
		code, _ := get("/health")
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("not ready before start", func(t *testing.T) {
		code, body := get("/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Contains(t, body, servreg.StateConstructed.String())
	})

	t.Run("ready once started", func(t *testing.T) {
		state = servreg.StateStarted
		code, _ := get("/health/ready")
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("metrics", func(t *testing.T) {
		code, body := get("/metrics")
		assert.Equal(t, http.StatusOK, code)
		assert.Contains(t, body, "servreg_orchestrator_state")
	})
}
