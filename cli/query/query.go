package query

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/cli/flags"
	"github.com/nspcc-dev/dauction/cli/options"
	"github.com/nspcc-dev/dauction/pkg/encoding/ether"
	"github.com/nspcc-dev/dauction/pkg/rpcapi"
	"github.com/nspcc-dev/dauction/pkg/rpcclient"
	"github.com/urfave/cli"
)

var accountFlag = flags.AddressFlag{
	Name:  "account, a",
	Usage: "account to query",
}

// NewCommands returns 'query' command.
func NewCommands() []cli.Command {
	accountFlags := append([]cli.Flag{accountFlag}, options.RPC...)
	return []cli.Command{{
		Name:  "query",
		Usage: "query sale data from a node",
		Subcommands: []cli.Command{
			{
				Name:   "price",
				Usage:  "current unit price (or the one at --at)",
				Action: queryPrice,
				Flags: append([]cli.Flag{
					cli.Uint64Flag{
						Name:  "at",
						Usage: "unix time to compute the price at",
					},
				}, options.RPC...),
			},
			{
				Name:   "config",
				Usage:  "sale configuration",
				Action: queryConfig,
				Flags:  options.RPC,
			},
			{
				Name:   "state",
				Usage:  "sale totals and settings",
				Action: queryState,
				Flags:  options.RPC,
			},
			{
				Name:   "user",
				Usage:  "participant record with claimable units and due refund",
				Action: queryUser,
				Flags:  accountFlags,
			},
			{
				Name:   "nonce",
				Usage:  "authorization nonce of an account",
				Action: queryNonce,
				Flags:  accountFlags,
			},
			{
				Name:   "payouts",
				Usage:  "payments made by the sale (of the --account only if given)",
				Action: queryPayouts,
				Flags:  accountFlags,
			},
			{
				Name:   "inventory",
				Usage:  "inventory supply and holders",
				Action: queryInventory,
				Flags: append([]cli.Flag{
					flags.AddressFlag{
						Name:  "contract",
						Usage: "inventory address (the current one if not set)",
					},
				}, options.RPC...),
			},
		},
	}}
}

// withClient runs f with an RPC client built from the context, exit errors are
// produced from any error returned.
func withClient(ctx *cli.Context, f func(c *rpcclient.Client, w *tabwriter.Writer) error) error {
	if len(ctx.Args()) != 0 {
		return cli.NewExitError(fmt.Errorf("unexpected arguments: %v", ctx.Args()), 1)
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	buf := bytes.NewBuffer(nil)
	tw := tabwriter.NewWriter(buf, 0, 4, 4, '\t', 0)
	if err := f(c, tw); err != nil {
		return cli.NewExitError(err, 1)
	}
	_ = tw.Flush()
	fmt.Fprint(ctx.App.Writer, buf.String())
	return nil
}

func requireAccount(ctx *cli.Context) (common.Address, error) {
	acc := flags.AddressFromContext(ctx, "account")
	if !acc.IsSet {
		return common.Address{}, cli.NewExitError("account is missing", 1)
	}
	return acc.Value, nil
}

func queryPrice(ctx *cli.Context) error {
	return withClient(ctx, func(c *rpcclient.Client, w *tabwriter.Writer) error {
		var (
			p   *rpcapi.Price
			err error
		)
		if ctx.IsSet("at") {
			p, err = c.GetPriceAt(ctx.Uint64("at"))
		} else {
			p, err = c.GetCurrentPrice()
		}
		if err != nil {
			return err
		}
		writeLine(w, "Time", formatTime(p.Time))
		writeLine(w, "Price", formatEther(p.Price))
		return nil
	})
}

func queryConfig(ctx *cli.Context) error {
	return withClient(ctx, func(c *rpcclient.Client, w *tabwriter.Writer) error {
		cfg, err := c.GetConfig()
		if err != nil {
			return err
		}
		writeLine(w, "StartPrice", formatEther(cfg.StartPrice))
		writeLine(w, "EndPrice", formatEther(cfg.EndPrice))
		writeLine(w, "Limit", formatEther(cfg.Limit))
		writeLine(w, "StartTime", formatTime(cfg.StartTime))
		writeLine(w, "EndTime", formatTime(cfg.EndTime))
		writeLine(w, "RefundDelay", (time.Duration(cfg.RefundDelay) * time.Second).String())
		return nil
	})
}

func queryState(ctx *cli.Context) error {
	return withClient(ctx, func(c *rpcclient.Client, w *tabwriter.Writer) error {
		s, err := c.GetSaleState()
		if err != nil {
			return err
		}
		writeLine(w, "Committed", strconv.FormatUint(s.Committed, 10))
		writeLine(w, "Balance", formatEther(s.Balance))
		if s.ClearingPrice != nil {
			writeLine(w, "ClearingPrice", formatEther(s.ClearingPrice))
		}
		writeLine(w, "Paused", strconv.FormatBool(s.Paused))
		for _, a := range s.Admins {
			writeLine(w, "Admin", a.Hex())
		}
		writeLine(w, "Signer", s.Signer.Hex())
		writeLine(w, "Treasury", s.Treasury.Hex())
		writeLine(w, "NftContract", s.NftContract.Hex())
		writeLine(w, "AllowlistRoot", s.AllowlistRoot.Hex())
		return nil
	})
}

func queryUser(ctx *cli.Context) error {
	acc, err := requireAccount(ctx)
	if err != nil {
		return err
	}
	return withClient(ctx, func(c *rpcclient.Client, w *tabwriter.Writer) error {
		u, err := c.GetUserData(acc)
		if err != nil {
			return err
		}
		nonce, err := c.GetNonce(acc)
		if err != nil {
			return err
		}
		writeLine(w, "Account", acc.Hex())
		writeLine(w, "Contribution", formatEther(u.Contribution))
		writeLine(w, "UnitsBid", strconv.FormatUint(u.UnitsBid, 10))
		writeLine(w, "UnitsReleased", strconv.FormatUint(u.UnitsReleased, 10))
		writeLine(w, "RefundClaimed", strconv.FormatBool(u.RefundClaimed))
		writeLine(w, "Nonce", strconv.FormatUint(nonce, 10))
		// Both are only defined for a configured sale.
		if claimable, err := c.GetClaimable(acc); err == nil {
			writeLine(w, "Claimable", strconv.FormatUint(claimable, 10))
		}
		if refund, err := c.GetRefund(acc); err == nil {
			writeLine(w, "Refund", formatEther(refund))
		}
		return nil
	})
}

func queryNonce(ctx *cli.Context) error {
	acc, err := requireAccount(ctx)
	if err != nil {
		return err
	}
	return withClient(ctx, func(c *rpcclient.Client, w *tabwriter.Writer) error {
		nonce, err := c.GetNonce(acc)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, nonce)
		return nil
	})
}

func queryPayouts(ctx *cli.Context) error {
	var acc *common.Address
	if a := flags.AddressFromContext(ctx, "account"); a.IsSet {
		acc = &a.Value
	}
	return withClient(ctx, func(c *rpcclient.Client, w *tabwriter.Writer) error {
		payouts, err := c.GetPayouts(acc)
		if err != nil {
			return err
		}
		for _, p := range payouts {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\n", p.Account.Hex(), formatEther(p.Amount), p.Count)
		}
		return nil
	})
}

func queryInventory(ctx *cli.Context) error {
	var addr *common.Address
	if a := flags.AddressFromContext(ctx, "contract"); a.IsSet {
		addr = &a.Value
	}
	return withClient(ctx, func(c *rpcclient.Client, w *tabwriter.Writer) error {
		inv, err := c.GetInventory(addr)
		if err != nil {
			return err
		}
		writeLine(w, "Address", inv.Address.Hex())
		writeLine(w, "Supply", fmt.Sprintf("%d/%d", inv.CurrentSupply, inv.MaxSupply))
		writeLine(w, "Paused", strconv.FormatBool(inv.Paused))
		owners := make([]common.Address, 0, len(inv.Owners))
		for o := range inv.Owners {
			owners = append(owners, o)
		}
		slices.SortFunc(owners, func(a, b common.Address) int { return a.Cmp(b) })
		for _, o := range owners {
			writeLine(w, "Owner", fmt.Sprintf("%s\t%d", o.Hex(), inv.Owners[o]))
		}
		return nil
	})
}

func writeLine(w io.Writer, name, value string) {
	_, _ = fmt.Fprintf(w, "%s:\t%s\n", name, value)
}

func formatEther(v *uint256.Int) string {
	if v == nil {
		v = new(uint256.Int)
	}
	return ether.Format(v) + " ETH"
}

func formatTime(t uint64) string {
	return time.Unix(int64(t), 0).UTC().Format(time.RFC3339)
}
