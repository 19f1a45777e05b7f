package allowlist

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/dauction/cli/flags"
	"github.com/nspcc-dev/dauction/pkg/crypto/merkle"
	"github.com/urfave/cli"
)

var inFlag = cli.StringFlag{
	Name:  "in, i",
	Usage: "file with allowlisted addresses, one per line ('#' starts a comment)",
}

// NewCommands returns 'allowlist' command.
func NewCommands() []cli.Command {
	return []cli.Command{{
		Name:  "allowlist",
		Usage: "build refund allowlist commitments",
		Subcommands: []cli.Command{
			{
				Name:      "root",
				Usage:     "print the allowlist root to be set with setallowlistroot",
				UsageText: "dauction allowlist root --in file",
				Action:    printRoot,
				Flags:     flags.MarkRequired([]cli.Flag{inFlag}, inFlag.Name),
			},
			{
				Name:      "proof",
				Usage:     "print the membership proof of an account as JSON",
				UsageText: "dauction allowlist proof --in file --account addr",
				Action:    printProof,
				Flags: flags.MarkRequired([]cli.Flag{
					inFlag,
					flags.AddressFlag{
						Name:  "account, a",
						Usage: "allowlisted account",
					},
				}, inFlag.Name),
			},
		},
	}}
}

func printRoot(ctx *cli.Context) error {
	tree, err := treeFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, tree.Root().Hex())
	return nil
}

func printProof(ctx *cli.Context) error {
	acc := flags.AddressFromContext(ctx, "account")
	if !acc.IsSet {
		return cli.NewExitError("account is missing", 1)
	}
	tree, err := treeFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	proof, err := tree.AccountProof(acc.Value)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("%s: %w", acc.Value.Hex(), err), 1)
	}
	if proof == nil {
		proof = []common.Hash{}
	}
	out, err := json.Marshal(proof)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, string(out))
	return nil
}

func treeFromContext(ctx *cli.Context) (*merkle.Tree, error) {
	path := ctx.String("in")
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	accounts, err := readAddresses(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return merkle.NewTree(accounts)
}

// readAddresses parses an address list, duplicates are an error.
func readAddresses(r io.Reader) ([]common.Address, error) {
	var (
		res  []common.Address
		seen = make(map[common.Address]int)
		sc   = bufio.NewScanner(r)
		line int
	)
	for sc.Scan() {
		line++
		s, _, _ := strings.Cut(sc.Text(), "#")
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		a, err := flags.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if prev, ok := seen[a]; ok {
			return nil, fmt.Errorf("line %d: %s is already listed at line %d", line, s, prev)
		}
		seen[a] = line
		res = append(res, a)
	}
	return res, sc.Err()
}
