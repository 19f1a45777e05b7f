package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/nspcc-dev/dauction/pkg/config"
	"go.uber.org/zap"
)

// Service serves metrics.
type Service struct {
	http        []*http.Server
	config      config.BasicService
	log         *zap.Logger
	serviceType string
	started     atomic.Bool
}

// NewService configures a new Service instance serving on the given servers.
func NewService(name string, httpServers []*http.Server, cfg config.BasicService, log *zap.Logger) *Service {
	return &Service{
		http:        httpServers,
		config:      cfg,
		serviceType: name,
		log:         log.With(zap.String("service", name)),
	}
}

// Name returns the service name.
func (ms *Service) Name() string {
	return ms.serviceType
}

// Start runs http service with the exposed endpoint on the configured port.
// Listen errors are returned, serving errors are logged.
func (ms *Service) Start() error {
	if !ms.config.Enabled {
		ms.log.Info("service hasn't started since it's disabled")
		return nil
	}
	if !ms.started.CompareAndSwap(false, true) {
		ms.log.Info("service already started")
		return nil
	}
	for _, srv := range ms.http {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			return err
		}
		srv.Addr = ln.Addr().String() // set Addr to the actual address
		ms.log.Info("service is running", zap.String("endpoint", srv.Addr))
		go func(srv *http.Server) {
			err := srv.Serve(ln)
			if !errors.Is(err, http.ErrServerClosed) {
				ms.log.Error("failed to serve", zap.String("endpoint", srv.Addr), zap.Error(err))
			}
		}(srv)
	}
	return nil
}

// Addresses returns the actual bind addresses, valid after Start.
func (ms *Service) Addresses() []string {
	res := make([]string, len(ms.http))
	for i, srv := range ms.http {
		res[i] = srv.Addr
	}
	return res
}

// ShutDown stops the service.
func (ms *Service) ShutDown() {
	if !ms.config.Enabled || !ms.started.CompareAndSwap(true, false) {
		return
	}
	for _, srv := range ms.http {
		ms.log.Info("shutting down service", zap.String("endpoint", srv.Addr))
		err := srv.Shutdown(context.Background())
		if err != nil {
			ms.log.Error("can't shut service down", zap.String("endpoint", srv.Addr), zap.Error(err))
		}
	}
}
