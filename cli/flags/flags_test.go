package flags

import (
	"flag"
	"io"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func TestParseAddress(t *testing.T) {
	want := common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	for _, s := range []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		"5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED",
	} {
		a, err := ParseAddress(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, a)
	}
	for _, s := range []string{
		"",
		"0x1234",
		"not an address",
		"0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", // broken checksum
	} {
		_, err := ParseAddress(s)
		require.Error(t, err, s)
	}
}

func TestAddress(t *testing.T) {
	addr := Address{}
	require.Panics(t, func() { addr.Address() })
	require.Error(t, addr.Set("bad"))
	require.False(t, addr.IsSet)

	value := common.HexToAddress("0x0102")
	require.NoError(t, addr.Set(value.Hex()))
	require.True(t, addr.IsSet)
	require.Equal(t, value, addr.Address())
	require.Equal(t, value.Hex(), addr.String())
}

func TestAddressFlag(t *testing.T) {
	f := AddressFlag{Name: "address, a", Usage: "an address"}
	require.False(t, f.IsSet())
	require.Equal(t, "--address value, -a value\tan address", f.String())
	require.Equal(t, "address, a", f.GetName())

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.SetOutput(io.Discard)
	f.Apply(set)
	value := common.HexToAddress("0xa11ce")
	require.NoError(t, set.Parse([]string{"-a", value.Hex()}))

	ctx := cli.NewContext(cli.NewApp(), set, nil)
	got := AddressFromContext(ctx, "address")
	require.True(t, got.IsSet)
	require.Equal(t, value, got.Value)
}

func TestEtherFlag(t *testing.T) {
	f := EtherFlag{Name: "value", Usage: "payment"}
	require.Equal(t, "--value value\tpayment", f.String())

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.SetOutput(io.Discard)
	f.Apply(set)
	require.Error(t, set.Parse([]string{"--value", "-1"}))

	set = flag.NewFlagSet("test", flag.ContinueOnError)
	f.Apply(set)
	ctx := cli.NewContext(cli.NewApp(), set, nil)
	require.Nil(t, EtherFromContext(ctx, "value"))
	require.NoError(t, set.Parse([]string{"--value", "0.65"}))
	require.Equal(t, uint256.NewInt(650_000_000_000_000_000), EtherFromContext(ctx, "value"))
	require.Equal(t, "0.65", ctx.Generic("value").(*Ether).String())
}

func TestMarkRequired(t *testing.T) {
	set := MarkRequired([]cli.Flag{
		cli.StringFlag{Name: "in, i"},
		cli.Uint64Flag{Name: "qty"},
		cli.BoolFlag{Name: "json"},
		AddressFlag{Name: "account"},
	}, "in, i", "qty")
	require.True(t, set[0].(cli.StringFlag).Required)
	require.True(t, set[1].(cli.Uint64Flag).Required)
	require.False(t, set[2].(cli.BoolFlag).Required)
	require.Equal(t, AddressFlag{Name: "account"}, set[3])
}
