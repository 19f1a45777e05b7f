package config

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/dauction/pkg/core/storage/dbconfig"
	"github.com/stretchr/testify/require"
)

const testConfigPath = "./testdata/auction.yml"

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile(testConfigPath)
	require.NoError(t, err)

	a := cfg.AuctionConfiguration
	require.Equal(t, common.HexToAddress("0xa0c70"), a.Address)
	require.Equal(t, uint64(31337), a.ChainID)
	require.Equal(t, DefaultName, a.Name)
	require.Equal(t, DefaultVersion, a.Version)
	require.Equal(t, []common.Address{common.HexToAddress("0xad")}, a.Admins)
	require.Equal(t, uint64(10), a.MaxSupply)
	require.Equal(t, map[common.Address][]common.Address{
		common.HexToAddress("0xa11ce"): {common.HexToAddress("0xca401")},
	}, a.DelegationMap())

	d := a.Domain()
	require.Equal(t, a.Address, d.VerifyingContract)
	require.Equal(t, uint64(31337), d.ChainID)

	require.NotNil(t, a.Sale)
	sc, err := a.Sale.SaleConfig()
	require.NoError(t, err)
	require.Equal(t, "2000000000000000000", sc.StartPrice.Dec())
	require.Equal(t, "200000000000000000", sc.EndPrice.Dec())
	require.Equal(t, "10000000000000000000", sc.Limit.Dec())
	require.Equal(t, uint64(1800), sc.RefundDelay)
	require.Equal(t, uint64(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix()), sc.StartTime)
	require.Equal(t, sc.StartTime+3600, sc.EndTime)

	app := cfg.ApplicationConfiguration
	require.Equal(t, dbconfig.InMemoryDB, app.DBConfiguration.Type)
	require.True(t, app.RPC.Enabled)
	require.Equal(t, []string{"127.0.0.1:20331"}, app.RPC.Addresses)
	require.Equal(t, "secret", app.RPC.AuthToken)
	require.Equal(t, DefaultMaxWebSocketClients, app.RPC.MaxWebSocketClients)
	require.False(t, app.Prometheus.Enabled)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("./testdata/nonexistent.yml")
	require.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	const base = `
AuctionConfiguration:
  Address: 0x00000000000000000000000000000000000a0c70
  Admins: [0x00000000000000000000000000000000000000ad]
  NftContract: 0x00000000000000000000000000000000000004f7
  MaxSupply: 10
ApplicationConfiguration:
  DBConfiguration:
    Type: inmemory
`
	_, err := Load([]byte(base))
	require.NoError(t, err)

	for name, data := range map[string]string{
		"unknown field":  base + "  Unknown: 1\n",
		"bad db":         "ApplicationConfiguration:\n  DBConfiguration:\n    Type: redis\n",
		"no address":     "AuctionConfiguration:\n  MaxSupply: 1\n",
		"bad address":    "AuctionConfiguration:\n  Address: 0x01\n",
		"bad log level":  base + "  LogLevel: loud\n",
		"rpc no address": base + "  RPC:\n    Enabled: true\n",
		"bad sale": base[:len(base)-len("ApplicationConfiguration:\n  DBConfiguration:\n    Type: inmemory\n")] +
			"  Sale:\n    StartPrice: -1\n" + "ApplicationConfiguration:\n  DBConfiguration:\n    Type: inmemory\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load([]byte(data))
			require.Error(t, err)
		})
	}
}

func TestSampleConfig(t *testing.T) {
	cfg, err := LoadFile("../../config/dauction.yml")
	require.NoError(t, err)
	require.Equal(t, dbconfig.BoltDB, cfg.ApplicationConfiguration.DBConfiguration.Type)
	require.Empty(t, cfg.ApplicationConfiguration.RPC.AuthToken)
	require.Empty(t, cfg.AuctionConfiguration.DelegationMap())
	require.NotNil(t, cfg.AuctionConfiguration.Sale)
}
