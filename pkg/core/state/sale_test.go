package state

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/io"
	"github.com/stretchr/testify/require"
)

func TestSaleConfigCopy(t *testing.T) {
	c := &SaleConfig{
		StartPrice: uint256.NewInt(2),
		EndPrice:   uint256.NewInt(1),
		Limit:      uint256.NewInt(10),
		StartTime:  5,
		EndTime:    10,
	}
	cp := c.Copy()
	cp.StartPrice.SetUint64(100)
	require.Equal(t, uint64(2), c.StartPrice.Uint64())
	require.Equal(t, c.EndTime, cp.EndTime)
}

func TestRefundTimeSaturates(t *testing.T) {
	c := &SaleConfig{EndTime: 100, RefundDelay: 50}
	require.Equal(t, uint64(150), c.RefundTime())

	c = &SaleConfig{EndTime: ^uint64(0) - 1, RefundDelay: 50}
	require.Equal(t, ^uint64(0), c.RefundTime())
}

func TestGlobalClearingPriceEncoding(t *testing.T) {
	g := NewGlobal()
	g.Committed = 3
	g.Balance.SetUint64(42)

	data, err := io.ToBytes(g)
	require.NoError(t, err)
	actual := new(Global)
	require.NoError(t, io.FromBytes(data, actual))
	require.Nil(t, actual.ClearingPrice)
	require.Equal(t, uint64(42), actual.Balance.Uint64())

	g.ClearingPrice = uint256.NewInt(7)
	data, err = io.ToBytes(g)
	require.NoError(t, err)
	require.NoError(t, io.FromBytes(data, actual))
	require.Equal(t, uint64(7), actual.ClearingPrice.Uint64())
}

func TestAccountDecodeTruncated(t *testing.T) {
	a := NewAccount()
	a.Contribution.SetUint64(1)
	a.UnitsBid = 2
	a.Nonce = 1
	data, err := io.ToBytes(a)
	require.NoError(t, err)

	require.Error(t, io.FromBytes(data[:len(data)-1], new(Account)))
}

func TestSettingsEncoding(t *testing.T) {
	s := &Settings{
		Paused:        true,
		Signer:        common.HexToAddress("0x01"),
		Treasury:      common.HexToAddress("0x02"),
		NftContract:   common.HexToAddress("0x03"),
		AllowlistRoot: common.HexToHash("0x04"),
	}
	data, err := io.ToBytes(s)
	require.NoError(t, err)
	actual := new(Settings)
	require.NoError(t, io.FromBytes(data, actual))
	require.Equal(t, s, actual)
}

func TestHoldingsTotal(t *testing.T) {
	h := &Holdings{Ranges: []UnitRange{{First: 1, Count: 2}, {First: 7, Count: 3}}}
	require.Equal(t, uint64(5), h.Total())

	data, err := io.ToBytes(h)
	require.NoError(t, err)
	actual := new(Holdings)
	require.NoError(t, io.FromBytes(data, actual))
	require.Equal(t, h, actual)
}
