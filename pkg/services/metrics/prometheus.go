package metrics

import (
	"net/http"

	"github.com/nspcc-dev/dauction/pkg/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewPrometheusService creates a new service for gathering prometheus metrics.
func NewPrometheusService(cfg config.BasicService, log *zap.Logger) *Service {
	srvs := make([]*http.Server, len(cfg.Addresses))
	for i, addr := range cfg.Addresses {
		srvs[i] = &http.Server{
			Addr:    addr,
			Handler: promhttp.Handler(), // share metrics between multiple prometheus handlers
		}
	}
	return NewService("Prometheus", srvs, cfg, log)
}
