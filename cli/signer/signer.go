package signer

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nspcc-dev/dauction/cli/flags"
	"github.com/nspcc-dev/dauction/cli/input"
	"github.com/nspcc-dev/dauction/cli/options"
	"github.com/nspcc-dev/dauction/pkg/config"
	"github.com/nspcc-dev/dauction/pkg/crypto/bidsig"
	"github.com/nspcc-dev/dauction/pkg/rpcapi"
	"github.com/urfave/cli"
)

// KeyEnv is the environment variable holding a hex-encoded signer key, it's
// used when no keystore file is given.
const KeyEnv = "AUCTION_SIGNER_KEY"

// DefaultTTL is the validity period of authorizations without an explicit
// deadline.
const DefaultTTL = 10 * time.Minute

var errNoKey = errors.New("no signer key, use --keystore or set " + KeyEnv)

var keyFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "keystore, k",
		Usage: "encrypted JSON key file of the signer",
	},
	options.EnvFile,
}

// NewCommands returns 'signer' command.
func NewCommands() []cli.Command {
	signFlags := flags.MarkRequired(append([]cli.Flag{
		flags.AddressFlag{
			Name:  "account, a",
			Usage: "account the bid is authorized for",
		},
		cli.Uint64Flag{
			Name:  "qty, q",
			Usage: "number of units",
		},
		cli.Uint64Flag{
			Name:  "nonce, n",
			Usage: "current nonce of the account",
		},
		cli.Uint64Flag{
			Name:  "deadline",
			Usage: "unix time the authorization expires at (now + --ttl if not set)",
		},
		cli.DurationFlag{
			Name:  "ttl",
			Value: DefaultTTL,
			Usage: "authorization validity period if no --deadline is given",
		},
		flags.AddressFlag{
			Name:  "auction",
			Usage: "sale address the authorization is bound to",
		},
		cli.Uint64Flag{
			Name:  "chain-id",
			Value: config.DefaultChainID,
			Usage: "chain ID of the sale domain",
		},
		cli.StringFlag{
			Name:  "name",
			Value: config.DefaultName,
			Usage: "name of the sale domain",
		},
		cli.StringFlag{
			Name:  "version",
			Value: config.DefaultVersion,
			Usage: "version of the sale domain",
		},
		cli.BoolFlag{
			Name:  "json",
			Usage: "print complete bid parameters instead of the signature only",
		},
	}, keyFlags...), "qty, q")
	return []cli.Command{{
		Name:  "signer",
		Usage: "bid authorization signing",
		Subcommands: []cli.Command{
			{
				Name:      "sign-bid",
				Usage:     "sign a bid authorization",
				UsageText: "dauction signer sign-bid --account addr --qty n --nonce n --auction addr [--keystore file]",
				Action:    signBid,
				Flags:     signFlags,
			},
			{
				Name:      "address",
				Usage:     "print the address of the signer key",
				UsageText: "dauction signer address [--keystore file]",
				Action:    printAddress,
				Flags:     keyFlags,
			},
		},
	}}
}

func signBid(ctx *cli.Context) error {
	account := flags.AddressFromContext(ctx, "account")
	if !account.IsSet {
		return cli.NewExitError("account is missing", 1)
	}
	sale := flags.AddressFromContext(ctx, "auction")
	if !sale.IsSet {
		return cli.NewExitError("auction address is missing", 1)
	}
	qty := ctx.Uint64("qty")
	if qty == 0 {
		return cli.NewExitError("zero quantity", 1)
	}
	key, err := getKey(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	deadline := ctx.Uint64("deadline")
	if deadline == 0 {
		deadline = uint64(time.Now().Add(ctx.Duration("ttl")).Unix())
	}
	bid := bidsig.Bid{
		Account:  account.Value,
		Qty:      qty,
		Nonce:    ctx.Uint64("nonce"),
		Deadline: deadline,
	}
	domain := bidsig.Domain{
		Name:              ctx.String("name"),
		Version:           ctx.String("version"),
		ChainID:           ctx.Uint64("chain-id"),
		VerifyingContract: sale.Value,
	}
	sig, err := bidsig.Sign(key, domain, bid)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if !ctx.Bool("json") {
		fmt.Fprintln(ctx.App.Writer, hexutil.Encode(sig))
		return nil
	}
	out, err := json.MarshalIndent(rpcapi.BidParams{
		Quantity:  bid.Qty,
		Nonce:     bid.Nonce,
		Deadline:  bid.Deadline,
		Signature: sig,
		Recipient: bid.Account,
	}, "", "  ")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, string(out))
	return nil
}

func printAddress(ctx *cli.Context) error {
	key, err := getKey(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, crypto.PubkeyToAddress(key.PublicKey).Hex())
	return nil
}

// getKey decrypts the keystore file if it's given, otherwise the key is taken
// from the environment.
func getKey(ctx *cli.Context) (*ecdsa.PrivateKey, error) {
	if path := ctx.String("keystore"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("can't read keystore: %w", err)
		}
		pass, err := input.ReadPassword("Enter password > ")
		if err != nil {
			return nil, fmt.Errorf("error reading password: %w", err)
		}
		k, err := keystore.DecryptKey(data, pass)
		if err != nil {
			return nil, err
		}
		return k.PrivateKey, nil
	}
	if err := options.LoadEnv(ctx); err != nil {
		return nil, err
	}
	hexKey := os.Getenv(KeyEnv)
	if hexKey == "" {
		return nil, errNoKey
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyEnv, err)
	}
	return key, nil
}
