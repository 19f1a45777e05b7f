package inventory

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/dauction/pkg/core/dao"
	"github.com/nspcc-dev/dauction/pkg/core/state"
	"github.com/nspcc-dev/dauction/pkg/core/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	nftAddr = common.HexToAddress("0x4f7")
	alice   = common.HexToAddress("0xa11ce")
	bob     = common.HexToAddress("0xb0b")
)

// mint mints within a fresh layer over the inventory store and persists
// it on success.
func mint(inv *Inventory, recipient common.Address, quantity uint64) (uint64, error) {
	d := dao.NewSimple(inv.store)
	first, err := inv.MintTo(d, recipient, quantity)
	if err != nil {
		return 0, err
	}
	_, err = d.Persist()
	return first, err
}

func TestMintTo(t *testing.T) {
	inv, err := New(storage.NewMemoryStore(), nftAddr, 10, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Equal(t, uint64(10), inv.MaxSupply())
	require.Equal(t, uint64(0), inv.CurrentSupply())

	first, err := mint(inv, alice, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(1), first)
	first, err = mint(inv, alice, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(3), first)
	first, err = mint(inv, bob, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(6), first)
	first, err = mint(inv, alice, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(7), first)

	h, err := inv.HoldingsOf(alice)
	require.NoError(t, err)
	require.Equal(t, []state.UnitRange{{First: 1, Count: 5}, {First: 7, Count: 1}}, h.Ranges)
	require.Equal(t, uint64(7), inv.CurrentSupply())

	owners, err := inv.Owners()
	require.NoError(t, err)
	require.Equal(t, map[common.Address]uint64{alice: 6, bob: 1}, owners)

	_, err = mint(inv, bob, 4)
	require.ErrorIs(t, err, ErrCapacity)
	_, err = mint(inv, bob, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = mint(inv, bob, 3)
	require.NoError(t, err)
	require.Equal(t, inv.MaxSupply(), inv.CurrentSupply())
}

func TestPaused(t *testing.T) {
	inv, err := New(storage.NewMemoryStore(), nftAddr, 10, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, inv.SetPaused(true))
	require.True(t, inv.Paused())
	_, err = mint(inv, alice, 1)
	require.ErrorIs(t, err, ErrPaused)
	require.NoError(t, inv.SetPaused(false))
	_, err = mint(inv, alice, 1)
	require.NoError(t, err)
}

func TestReopen(t *testing.T) {
	st := storage.NewMemoryStore()
	inv, err := New(st, nftAddr, 10, zaptest.NewLogger(t))
	require.NoError(t, err)
	_, err = mint(inv, alice, 4)
	require.NoError(t, err)

	inv, err = New(st, nftAddr, 20, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Equal(t, uint64(10), inv.MaxSupply())
	require.Equal(t, uint64(4), inv.CurrentSupply())

	// Another inventory in the same store is independent.
	other, err := New(st, common.HexToAddress("0x0123"), 3, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Equal(t, uint64(0), other.CurrentSupply())
	h, err := other.HoldingsOf(alice)
	require.NoError(t, err)
	require.Empty(t, h.Ranges)
}

func TestRegistry(t *testing.T) {
	inv, err := New(storage.NewMemoryStore(), nftAddr, 10, zaptest.NewLogger(t))
	require.NoError(t, err)
	r := NewRegistry(inv)

	got, err := r.Inventory(nftAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(10), got.MaxSupply())

	_, err = r.Inventory(alice)
	require.ErrorIs(t, err, ErrUnknown)

	other, err := New(storage.NewMemoryStore(), alice, 1, zaptest.NewLogger(t))
	require.NoError(t, err)
	r.Add(other)
	got2, err := r.Get(alice)
	require.NoError(t, err)
	require.Equal(t, alice, got2.Address())
}

func TestMintToLayer(t *testing.T) {
	inv, err := New(storage.NewMemoryStore(), nftAddr, 10, zaptest.NewLogger(t))
	require.NoError(t, err)

	// Dropped layer, nothing is minted.
	d := dao.NewSimple(inv.store)
	first, err := inv.MintTo(d, alice, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(1), first)
	require.Equal(t, uint64(0), inv.CurrentSupply())

	d = dao.NewSimple(inv.store)
	first, err = inv.MintTo(d, bob, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(1), first)
	// Later mints in the same layer see the earlier ones.
	first, err = inv.MintTo(d, bob, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(3), first)
	_, err = d.Persist()
	require.NoError(t, err)

	require.Equal(t, uint64(3), inv.CurrentSupply())
	owners, err := inv.Owners()
	require.NoError(t, err)
	require.Equal(t, map[common.Address]uint64{bob: 3}, owners)
}
