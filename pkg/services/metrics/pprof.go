package metrics

import (
	"net/http"
	"net/http/pprof"

	"github.com/nspcc-dev/dauction/pkg/config"
	"go.uber.org/zap"
)

// NewPprofService creates a new service exposing runtime profiles.
func NewPprofService(cfg config.BasicService, log *zap.Logger) *Service {
	handler := http.NewServeMux()
	handler.HandleFunc("/debug/pprof/", pprof.Index)
	handler.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	handler.HandleFunc("/debug/pprof/profile", pprof.Profile)
	handler.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	handler.HandleFunc("/debug/pprof/trace", pprof.Trace)

	srvs := make([]*http.Server, len(cfg.Addresses))
	for i, addr := range cfg.Addresses {
		srvs[i] = &http.Server{
			Addr:    addr,
			Handler: handler,
		}
	}
	return NewService("Pprof", srvs, cfg, log)
}
