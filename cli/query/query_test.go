package query

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/dauction/pkg/auction"
	"github.com/nspcc-dev/dauction/pkg/config"
	"github.com/nspcc-dev/dauction/pkg/core/inventory"
	"github.com/nspcc-dev/dauction/pkg/core/payout"
	"github.com/nspcc-dev/dauction/pkg/core/state"
	"github.com/nspcc-dev/dauction/pkg/core/storage"
	"github.com/nspcc-dev/dauction/pkg/crypto/bidsig"
	"github.com/nspcc-dev/dauction/pkg/encoding/ether"
	"github.com/nspcc-dev/dauction/pkg/services/rpcsrv"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
	"go.uber.org/zap/zaptest"
)

const saleStart = 1_700_000_000

var (
	admin    = common.HexToAddress("0xad")
	alice    = common.HexToAddress("0xa11ce")
	signer   = common.HexToAddress("0x5167")
	treasury = common.HexToAddress("0x7e")
	nft      = common.HexToAddress("0x4f7")
)

type executor struct {
	t        *testing.T
	endpoint string
	out      *bytes.Buffer
	lines    []string
}

func newExecutor(t *testing.T, configured bool) *executor {
	log := zaptest.NewLogger(t)
	store := storage.NewMemoryStore()
	inv, err := inventory.New(store, nft, 10, log)
	require.NoError(t, err)
	inventories := inventory.NewRegistry(inv)
	book := payout.New(store, log)
	sale, err := auction.New(store, auction.Options{
		Domain:      bidsig.Domain{Name: "DutchAuction", Version: "1", ChainID: 1, VerifyingContract: common.HexToAddress("0xa0c7")},
		Admins:      []common.Address{admin},
		Signer:      signer,
		Treasury:    treasury,
		NftContract: nft,
		Inventories: inventories,
		Payer:       book,
	}, log)
	require.NoError(t, err)
	if configured {
		start, err := ether.Parse("2")
		require.NoError(t, err)
		end, err := ether.Parse("0.2")
		require.NoError(t, err)
		limit, err := ether.Parse("10")
		require.NoError(t, err)
		require.NoError(t, sale.SetConfig(&auction.Invocation{Caller: admin, Time: saleStart - 100}, state.SaleConfig{
			StartPrice:  start,
			EndPrice:    end,
			Limit:       limit,
			RefundDelay: 1800,
			StartTime:   saleStart,
			EndTime:     saleStart + 3600,
		}))
	}

	srv := rpcsrv.New(sale, book, inventories, config.RPC{
		BasicService: config.BasicService{Enabled: true, Addresses: []string{"127.0.0.1:0"}},
	}, log, make(chan error, 1))
	srv.Start()
	t.Cleanup(srv.Shutdown)
	return &executor{
		t:        t,
		endpoint: "http://" + srv.Addresses()[0],
		out:      new(bytes.Buffer),
	}
}

// run executes 'query' subcommand with the node endpoint appended.
func (e *executor) run(args ...string) error {
	e.out.Reset()
	app := cli.NewApp()
	app.Writer = e.out
	app.ErrWriter = new(bytes.Buffer)
	app.ExitErrHandler = func(*cli.Context, error) {}
	app.Commands = NewCommands()
	err := app.Run(append(append([]string{"dauction", "query"}, args...), "--rpc-endpoint", e.endpoint))
	e.lines = strings.Split(strings.TrimRight(e.out.String(), "\n"), "\n")
	return err
}

func (e *executor) checkNextLine(re string) {
	require.NotEmpty(e.t, e.lines, "no more output, expected %s", re)
	require.Regexp(e.t, regexp.MustCompile("^"+re+"$"), e.lines[0])
	e.lines = e.lines[1:]
}

func (e *executor) checkEOF() {
	require.Empty(e.t, e.lines)
}

func TestQueryConfigured(t *testing.T) {
	e := newExecutor(t, true)

	require.NoError(t, e.run("price", "--at", "1700001800"))
	e.checkNextLine(`Time:\s+2023-11-14T22:43:20Z`)
	e.checkNextLine(`Price:\s+1.1 ETH`)
	e.checkEOF()

	// The sale is long over, so the current price is the floor.
	require.NoError(t, e.run("price"))
	e.checkNextLine(`Time:\s+.+`)
	e.checkNextLine(`Price:\s+0.2 ETH`)
	e.checkEOF()

	require.NoError(t, e.run("config"))
	e.checkNextLine(`StartPrice:\s+2 ETH`)
	e.checkNextLine(`EndPrice:\s+0.2 ETH`)
	e.checkNextLine(`Limit:\s+10 ETH`)
	e.checkNextLine(`StartTime:\s+2023-11-14T22:13:20Z`)
	e.checkNextLine(`EndTime:\s+2023-11-14T23:13:20Z`)
	e.checkNextLine(`RefundDelay:\s+30m0s`)
	e.checkEOF()

	require.NoError(t, e.run("state"))
	e.checkNextLine(`Committed:\s+0`)
	e.checkNextLine(`Balance:\s+0 ETH`)
	e.checkNextLine(`Paused:\s+false`)
	e.checkNextLine(`Admin:\s+` + admin.Hex())
	e.checkNextLine(`Signer:\s+` + signer.Hex())
	e.checkNextLine(`Treasury:\s+` + treasury.Hex())
	e.checkNextLine(`NftContract:\s+` + nft.Hex())
	e.checkNextLine(`AllowlistRoot:\s+0x0{64}`)
	e.checkEOF()

	require.NoError(t, e.run("user", "--account", alice.Hex()))
	e.checkNextLine(`Account:\s+` + alice.Hex())
	e.checkNextLine(`Contribution:\s+0 ETH`)
	e.checkNextLine(`UnitsBid:\s+0`)
	e.checkNextLine(`UnitsReleased:\s+0`)
	e.checkNextLine(`RefundClaimed:\s+false`)
	e.checkNextLine(`Nonce:\s+0`)
	e.checkNextLine(`Claimable:\s+0`)
	e.checkNextLine(`Refund:\s+0 ETH`)
	e.checkEOF()

	require.NoError(t, e.run("nonce", "--account", alice.Hex()))
	e.checkNextLine(`0`)
	e.checkEOF()

	require.NoError(t, e.run("inventory"))
	e.checkNextLine(`Address:\s+` + nft.Hex())
	e.checkNextLine(`Supply:\s+0/10`)
	e.checkNextLine(`Paused:\s+false`)
	e.checkEOF()

	require.NoError(t, e.run("payouts"))
	require.Empty(t, strings.TrimSpace(e.out.String()))
}

func TestQueryErrors(t *testing.T) {
	e := newExecutor(t, false)

	require.Error(t, e.run("config"))
	require.Error(t, e.run("price"))
	require.Error(t, e.run("user"))
	require.Error(t, e.run("nonce", "--account", "bad"))
	require.Error(t, e.run("state", "extra"))

	app := cli.NewApp()
	app.Writer = new(bytes.Buffer)
	app.ErrWriter = new(bytes.Buffer)
	app.ExitErrHandler = func(*cli.Context, error) {}
	app.Commands = NewCommands()
	require.Error(t, app.Run([]string{"dauction", "query", "state"}))
}
