/*
Package options contains a set of common CLI options and helper functions to use them.
*/
package options

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/nspcc-dev/dauction/pkg/config"
	"github.com/nspcc-dev/dauction/pkg/rpcclient"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultTimeout is the default timeout used for RPC requests.
const DefaultTimeout = 10 * time.Second

// DefaultConfigFile is the node configuration used if no --config-file is given.
const DefaultConfigFile = "./config/dauction.yml"

// RPCEndpointFlag is a long flag name for an RPC endpoint. It can be used to
// check for flag presence in the context.
const RPCEndpointFlag = "rpc-endpoint"

// TokenEnv is the environment variable the RPC write token is taken from if
// no --token flag is given.
const TokenEnv = "AUCTION_RPC_TOKEN"

// RPC is a set of flags used for RPC connections (endpoint, token and timeout).
var RPC = []cli.Flag{
	cli.StringFlag{
		Name:  RPCEndpointFlag + ", r",
		Usage: "RPC node address",
	},
	cli.StringFlag{
		Name:   "token",
		Usage:  "bearer token for write methods",
		EnvVar: TokenEnv,
	},
	cli.DurationFlag{
		Name:  "timeout, s",
		Value: DefaultTimeout,
		Usage: "Timeout for the operation",
	},
}

// ConfigFile is a flag for commands that use node configuration.
var ConfigFile = cli.StringFlag{
	Name:  "config-file",
	Value: DefaultConfigFile,
	Usage: "path to the node configuration file",
}

// EnvFile is a flag for commands that take secrets from the environment, the
// file is loaded into it without overriding variables that are already set.
var EnvFile = cli.StringFlag{
	Name:  "env-file",
	Usage: "dotenv file to load (.env in the current directory is used if it exists)",
}

// Debug is a flag for commands that allow node in debug mode usage.
var Debug = cli.BoolFlag{
	Name:  "debug, d",
	Usage: "enable debug logging (LOTS of output, overrides configuration)",
}

var errNoEndpoint = errors.New("no RPC endpoint specified, use option '--" + RPCEndpointFlag + "' or '-r'")

// GetTimeoutContext returns a context.Context with the default or a user-set timeout.
func GetTimeoutContext(ctx *cli.Context) (context.Context, func()) {
	dur := ctx.Duration("timeout")
	if dur == 0 {
		dur = DefaultTimeout
	}
	return context.WithTimeout(context.Background(), dur)
}

// GetRPCClient returns an RPC client instance for the given Context.
func GetRPCClient(gctx context.Context, ctx *cli.Context) (*rpcclient.Client, cli.ExitCoder) {
	endpoint := ctx.String(RPCEndpointFlag)
	if len(endpoint) == 0 {
		return nil, cli.NewExitError(errNoEndpoint, 1)
	}
	c, err := rpcclient.New(gctx, endpoint, rpcclient.Options{
		Token:          ctx.String("token"),
		RequestTimeout: ctx.Duration("timeout"),
	})
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}
	return c, nil
}

// GetConfigFromContext loads the node configuration pointed to by the
// --config-file flag.
func GetConfigFromContext(ctx *cli.Context) (config.Config, error) {
	configFile := ctx.String("config-file")
	if configFile == "" {
		configFile = DefaultConfigFile
	}
	return config.LoadFile(configFile)
}

// LoadEnv loads the dotenv file given with --env-file, a missing default
// .env file is not an error.
func LoadEnv(ctx *cli.Context) error {
	if path := ctx.String("env-file"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		return nil
	}
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// HandleLoggingParams reads logging parameters.
// If a user selected debug level -- function enables it.
// If logPath is configured -- function creates a dir and a file for logging.
func HandleLoggingParams(debug bool, cfg config.ApplicationConfiguration) (*zap.Logger, *zap.AtomicLevel, error) {
	var (
		level = zapcore.InfoLevel
		err   error
	)
	if len(cfg.LogLevel) > 0 {
		level, err = zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("log setting: %w", err)
		}
	}
	if debug {
		level = zapcore.DebugLevel
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.Encoding = "console"
	if cfg.LogEncoding != "" {
		cc.Encoding = cfg.LogEncoding
	}
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil

	if logPath := cfg.LogPath; logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("could not create dir for logger: %w", err)
		}
		cc.OutputPaths = []string{logPath}
	}

	log, err := cc.Build()
	return log, &cc.Level, err
}
