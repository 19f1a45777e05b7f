package config

import (
	"fmt"

	"github.com/nspcc-dev/dauction/pkg/core/storage/dbconfig"
	"go.uber.org/zap/zapcore"
)

// ApplicationConfiguration config specific to the node.
type ApplicationConfiguration struct {
	// LogLevel is one of zap levels, "info" by default.
	LogLevel string `yaml:"LogLevel"`
	// LogEncoding is "console" (default) or "json".
	LogEncoding     string                   `yaml:"LogEncoding"`
	LogPath         string                   `yaml:"LogPath"`
	DBConfiguration dbconfig.DBConfiguration `yaml:"DBConfiguration"`
	RPC             RPC                      `yaml:"RPC"`
	Prometheus      BasicService             `yaml:"Prometheus"`
	Pprof           BasicService             `yaml:"Pprof"`
}

// Validate checks ApplicationConfiguration for internal consistency.
func (a *ApplicationConfiguration) Validate() error {
	if a.LogLevel != "" {
		if _, err := zapcore.ParseLevel(a.LogLevel); err != nil {
			return fmt.Errorf("LogLevel: %w", err)
		}
	}
	switch a.LogEncoding {
	case "", "console", "json":
	default:
		return fmt.Errorf("unknown LogEncoding: %s", a.LogEncoding)
	}
	switch a.DBConfiguration.Type {
	case dbconfig.LevelDB, dbconfig.BoltDB, dbconfig.InMemoryDB:
	default:
		return fmt.Errorf("unknown DBConfiguration.Type: %q", a.DBConfiguration.Type)
	}
	for name, svc := range map[string]BasicService{"Prometheus": a.Prometheus, "Pprof": a.Pprof} {
		if svc.Enabled && len(svc.Addresses) == 0 {
			return fmt.Errorf("%s is enabled, but no Addresses are set", name)
		}
	}
	return a.RPC.Validate()
}
