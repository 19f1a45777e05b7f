package metrics

import (
	"io"
	"net/http"
	"testing"

	"github.com/nspcc-dev/dauction/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPrometheusService(t *testing.T) {
	cfg := config.BasicService{Enabled: true, Addresses: []string{"127.0.0.1:0"}}
	srv := NewPrometheusService(cfg, zaptest.NewLogger(t))
	require.NoError(t, srv.Start())
	t.Cleanup(srv.ShutDown)
	assert.Equal(t, "Prometheus", srv.Name())

	resp, err := http.Get("http://" + srv.Addresses()[0] + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestDisabledService(t *testing.T) {
	srv := NewPrometheusService(config.BasicService{Addresses: []string{"127.0.0.1:0"}}, zaptest.NewLogger(t))
	require.NoError(t, srv.Start())
	srv.ShutDown()
	assert.Equal(t, []string{"127.0.0.1:0"}, srv.Addresses())
}
