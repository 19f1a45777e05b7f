package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nspcc-dev/dauction/cli/options"
	"github.com/nspcc-dev/dauction/pkg/auction"
	"github.com/nspcc-dev/dauction/pkg/config"
	"github.com/nspcc-dev/dauction/pkg/core/delegation"
	"github.com/nspcc-dev/dauction/pkg/core/inventory"
	"github.com/nspcc-dev/dauction/pkg/core/payout"
	"github.com/nspcc-dev/dauction/pkg/core/storage"
	"github.com/nspcc-dev/dauction/pkg/services/metrics"
	"github.com/nspcc-dev/dauction/pkg/services/rpcsrv"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NewCommands returns 'node' command.
func NewCommands() []cli.Command {
	cfgFlags := []cli.Flag{options.ConfigFile, options.Debug}
	return []cli.Command{
		{
			Name:      "node",
			Usage:     "start an auction node",
			UsageText: "dauction node [--config-file file] [--debug]",
			Action:    startServer,
			Flags:     cfgFlags,
		},
	}
}

// node is a set of components serving a single sale.
type node struct {
	log         *zap.Logger
	store       storage.Store
	sale        *auction.Auction
	book        *payout.Book
	inventories *inventory.Registry
}

// newNode opens the store and the sale kept in it, the sale schedule from the
// configuration is applied if the sale is not configured yet.
func newNode(cfg config.Config, log *zap.Logger, now time.Time) (*node, error) {
	store, err := storage.NewStore(cfg.ApplicationConfiguration.DBConfiguration)
	if err != nil {
		return nil, fmt.Errorf("could not initialize storage: %w", err)
	}
	n, err := initNode(store, cfg.AuctionConfiguration, log, now)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return n, nil
}

func initNode(store storage.Store, cfg config.AuctionConfiguration, log *zap.Logger, now time.Time) (*node, error) {
	inv, err := inventory.New(store, cfg.NftContract, cfg.MaxSupply, log)
	if err != nil {
		return nil, fmt.Errorf("could not initialize inventory: %w", err)
	}
	n := &node{
		log:         log,
		store:       store,
		book:        payout.New(store, log),
		inventories: inventory.NewRegistry(inv),
	}
	n.sale, err = auction.New(store, auction.Options{
		Domain:        cfg.Domain(),
		Admins:        cfg.Admins,
		Signer:        cfg.Signer,
		Treasury:      cfg.Treasury,
		NftContract:   cfg.NftContract,
		AllowlistRoot: cfg.AllowlistRoot,
		Delegations:   delegation.NewRegistry(cfg.DelegationMap()),
		Inventories:   n.inventories,
		Payer:         n.book,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("could not open the sale: %w", err)
	}
	if cfg.Sale != nil {
		if err := n.applySchedule(cfg, now); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// applySchedule configures the sale on behalf of the first configured admin
// unless it's configured already.
func (n *node) applySchedule(cfg config.AuctionConfiguration, now time.Time) error {
	_, err := n.sale.GetConfig()
	if err == nil {
		return nil
	}
	if !errors.Is(err, auction.ErrConfigNotSet) {
		return err
	}
	saleCfg, err := cfg.Sale.SaleConfig()
	if err != nil {
		return err
	}
	err = n.sale.SetConfig(&auction.Invocation{
		Caller: cfg.Admins[0],
		Time:   uint64(now.Unix()),
	}, saleCfg)
	if err != nil {
		return fmt.Errorf("failed to apply sale schedule: %w", err)
	}
	n.log.Info("sale schedule applied",
		zap.Time("start", cfg.Sale.StartTime),
		zap.Time("end", cfg.Sale.EndTime))
	return nil
}

func (n *node) close() {
	if err := n.store.Close(); err != nil {
		n.log.Warn("failed to close the store", zap.Error(err))
	}
}

func newGraceContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()
	return ctx
}

func startServer(ctx *cli.Context) error {
	if len(ctx.Args()) != 0 {
		return cli.NewExitError(fmt.Errorf("unexpected arguments: %v", ctx.Args()), 1)
	}
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	log, logLevel, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.ApplicationConfiguration)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = log.Sync() }()

	grace, cancel := context.WithCancel(newGraceContext())
	defer cancel()

	n, err := newNode(cfg, log, time.Now())
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer n.close()

	err = n.serve(grace, cfg, func(newCfg config.Config) {
		if newCfg.ApplicationConfiguration.LogLevel == "" || ctx.Bool("debug") {
			return
		}
		if err := logLevel.UnmarshalText([]byte(newCfg.ApplicationConfiguration.LogLevel)); err != nil {
			log.Warn("wrong LogLevel in ApplicationConfiguration, using the previous one", zap.Error(err))
		}
	}, func() (config.Config, error) { return options.GetConfigFromContext(ctx) })
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

// serve runs the RPC and metrics services until ctx is done or one of them
// fails. SIGHUP reloads the configuration file and passes it to onReload,
// only the log level is changed in runtime.
func (n *node) serve(ctx context.Context, cfg config.Config, onReload func(config.Config), reload func() (config.Config, error)) error {
	appCfg := cfg.ApplicationConfiguration
	errChan := make(chan error, len(appCfg.RPC.Addresses)+1)
	rpcServer := rpcsrv.New(n.sale, n.book, n.inventories, appCfg.RPC, n.log, errChan)
	prometheus := metrics.NewPrometheusService(appCfg.Prometheus, n.log)
	pprof := metrics.NewPprofService(appCfg.Pprof, n.log)

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range []*metrics.Service{prometheus, pprof} {
		if err := svc.Start(); err != nil {
			prometheus.ShutDown()
			pprof.ShutDown()
			return fmt.Errorf("failed to start %s service: %w", svc.Name(), err)
		}
	}
	rpcServer.Start()

	g.Go(func() error {
		select {
		case err := <-errChan:
			return fmt.Errorf("RPC server: %w", err)
		case <-gctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-hup:
				newCfg, err := reload()
				if err != nil {
					n.log.Warn("can't reload configuration", zap.Error(err))
					continue
				}
				onReload(newCfg)
				n.log.Info("configuration reloaded")
			case <-gctx.Done():
				return nil
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		n.log.Info("shutting down the node")
		rpcServer.Shutdown()
		prometheus.ShutDown()
		pprof.ShutDown()
		return nil
	})
	return g.Wait()
}
