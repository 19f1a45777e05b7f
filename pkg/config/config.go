package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Version is the version of the node, set at build time.
var Version string

// Config is the top-level node configuration.
type Config struct {
	AuctionConfiguration     AuctionConfiguration     `yaml:"AuctionConfiguration"`
	ApplicationConfiguration ApplicationConfiguration `yaml:"ApplicationConfiguration"`
}

// Default values.
const (
	DefaultName                = "DutchAuction"
	DefaultVersion             = "1"
	DefaultChainID             = 1
	DefaultMaxWebSocketClients = 64
	DefaultMaxRequestBodyBytes = 5 * 1024 * 1024
	DefaultMaxBatchSize        = 100
)

// Default returns a config with all the defaults set.
func Default() Config {
	return Config{
		AuctionConfiguration: AuctionConfiguration{
			Name:    DefaultName,
			Version: DefaultVersion,
			ChainID: DefaultChainID,
		},
		ApplicationConfiguration: ApplicationConfiguration{
			RPC: RPC{
				MaxWebSocketClients: DefaultMaxWebSocketClients,
				MaxRequestBodyBytes: DefaultMaxRequestBodyBytes,
				MaxBatchSize:        DefaultMaxBatchSize,
			},
		},
	}
}

// LoadFile loads the config from the provided path.
func LoadFile(configPath string) (Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config '%s' doesn't exist", configPath)
	}
	configData, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}
	return Load(configData)
}

// Load decodes the config from YAML, unknown fields are an error.
func Load(configData []byte) (Config, error) {
	config := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(configData))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	if err := config.AuctionConfiguration.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid AuctionConfiguration: %w", err)
	}
	if err := config.ApplicationConfiguration.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid ApplicationConfiguration: %w", err)
	}
	return config, nil
}
