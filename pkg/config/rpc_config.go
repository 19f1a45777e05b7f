package config

import "errors"

// RPC is an RPC service configuration information.
type RPC struct {
	BasicService `yaml:",inline"`
	// AuthToken is the bearer token required by mutating methods. Mutating
	// methods are disabled if it's empty.
	AuthToken           string `yaml:"AuthToken"`
	MaxBatchSize        int    `yaml:"MaxBatchSize"`
	MaxRequestBodyBytes int    `yaml:"MaxRequestBodyBytes"`
	MaxWebSocketClients int    `yaml:"MaxWebSocketClients"`
}

// Validate checks RPC for internal consistency.
func (cfg *RPC) Validate() error {
	if cfg.Enabled && len(cfg.Addresses) == 0 {
		return errors.New("RPC is enabled, but no Addresses are set")
	}
	if cfg.MaxBatchSize <= 0 || cfg.MaxRequestBodyBytes <= 0 || cfg.MaxWebSocketClients < 0 {
		return errors.New("invalid RPC limits")
	}
	return nil
}
