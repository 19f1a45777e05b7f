package auction

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/core/state"
	"github.com/stretchr/testify/require"
)

func TestCurrentPrice(t *testing.T) {
	cfg := testConfig()
	testCases := []struct {
		name  string
		now   uint64
		price string
	}{
		{"long before start", 0, "2.0"},
		{"before start", saleStart - 1, "2.0"},
		{"at start", saleStart, "2.0"},
		{"quarter", saleStart + 900, "1.55"},
		{"half", saleStart + 1800, "1.1"},
		{"three quarters", saleStart + 2700, "0.65"},
		{"at end", saleEnd, "0.2"},
		{"after end", saleEnd + 1, "0.2"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, eth(tc.price), CurrentPrice(&cfg, tc.now))
		})
	}
}

func TestCurrentPriceMonotonic(t *testing.T) {
	cfg := testConfig()
	prev := CurrentPrice(&cfg, saleStart)
	for now := saleStart + 7; now <= saleEnd+7; now += 7 {
		p := CurrentPrice(&cfg, now)
		require.False(t, p.Gt(prev), "price grows at %d", now)
		require.False(t, p.Lt(cfg.EndPrice))
		prev = p
	}
}

func TestCurrentPriceRoundsDecayDown(t *testing.T) {
	cfg := &state.SaleConfig{
		StartPrice: uint256.NewInt(10),
		EndPrice:   uint256.NewInt(1),
		StartTime:  100,
		EndTime:    104,
	}
	// Exact values are 7.75, 5.5 and 3.25.
	require.Equal(t, uint256.NewInt(8), CurrentPrice(cfg, 101))
	require.Equal(t, uint256.NewInt(6), CurrentPrice(cfg, 102))
	require.Equal(t, uint256.NewInt(4), CurrentPrice(cfg, 103))
}

func TestCurrentPriceDoesNotAlias(t *testing.T) {
	cfg := testConfig()
	p := CurrentPrice(&cfg, 0)
	p.SetUint64(1)
	require.Equal(t, eth("2.0"), cfg.StartPrice)
}

func TestVested(t *testing.T) {
	cfg := testConfig()
	require.Equal(t, uint64(0), vested(&cfg, 5, saleStart))
	require.Equal(t, uint64(1), vested(&cfg, 5, saleStart+720))
	require.Equal(t, uint64(2), vested(&cfg, 5, saleStart+1800))
	require.Equal(t, uint64(4), vested(&cfg, 5, saleEnd-1))
	require.Equal(t, uint64(5), vested(&cfg, 5, saleEnd))
	require.Equal(t, uint64(5), vested(&cfg, 5, saleEnd+1000))
	require.Equal(t, uint64(1<<63-1), vested(&cfg, ^uint64(0), saleStart+1800))
}
