package auction_test

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/auction"
	"github.com/nspcc-dev/dauction/pkg/core/inventory"
	"github.com/nspcc-dev/dauction/pkg/core/payout"
	"github.com/nspcc-dev/dauction/pkg/core/state"
	"github.com/nspcc-dev/dauction/pkg/core/storage"
	"github.com/nspcc-dev/dauction/pkg/crypto/bidsig"
	"github.com/nspcc-dev/dauction/pkg/crypto/merkle"
	"github.com/nspcc-dev/dauction/pkg/encoding/ether"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errDiskFull = errors.New("disk full")

type failingStore struct {
	storage.Store
	fail bool
}

func (s *failingStore) PutChangeSet(puts map[string][]byte) error {
	if s.fail {
		return errDiskFull
	}
	return s.Store.PutChangeSet(puts)
}

func mustEther(t *testing.T, s string) *uint256.Int {
	v, err := ether.Parse(s)
	require.NoError(t, err)
	return v
}

func TestCollaboratorsShareOperationBatch(t *testing.T) {
	const start uint64 = 1_700_000_000
	var (
		admin    = common.HexToAddress("0xad")
		alice    = common.HexToAddress("0xa11ce")
		treasury = common.HexToAddress("0x7e")
		nft      = common.HexToAddress("0x4f7")
		domain   = bidsig.Domain{Name: "DutchAuction", Version: "1", ChainID: 1, VerifyingContract: common.HexToAddress("0xa0c7")}
		log      = zaptest.NewLogger(t)
		store    = &failingStore{Store: storage.NewMemoryStore()}
	)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	tree, err := merkle.NewTree([]common.Address{alice, admin})
	require.NoError(t, err)
	proof, err := tree.AccountProof(alice)
	require.NoError(t, err)

	inv, err := inventory.New(store, nft, 10, log)
	require.NoError(t, err)
	book := payout.New(store, log)
	sale, err := auction.New(store, auction.Options{
		Domain:        domain,
		Admins:        []common.Address{admin},
		Signer:        crypto.PubkeyToAddress(key.PublicKey),
		Treasury:      treasury,
		NftContract:   nft,
		AllowlistRoot: tree.Root(),
		Inventories:   inventory.NewRegistry(inv),
		Payer:         book,
	}, log)
	require.NoError(t, err)
	require.NoError(t, sale.SetConfig(&auction.Invocation{Caller: admin, Time: start - 100}, state.SaleConfig{
		StartPrice:  mustEther(t, "2"),
		EndPrice:    mustEther(t, "0.2"),
		Limit:       mustEther(t, "10"),
		RefundDelay: 1800,
		StartTime:   start,
		EndTime:     start + 3600,
	}))

	sig, err := bidsig.Sign(key, domain, bidsig.Bid{Account: alice, Qty: 2, Deadline: start + 2000})
	require.NoError(t, err)
	_, err = sale.Bid(&auction.Invocation{Caller: alice, Value: mustEther(t, "2.2"), Time: start + 1800},
		auction.BidRequest{Quantity: 2, Deadline: start + 2000, Signature: sig, Recipient: alice})
	require.NoError(t, err)

	t.Run("claim", func(t *testing.T) {
		ic := &auction.Invocation{Caller: alice, Time: start + 3600}
		store.fail = true
		_, err := sale.ClaimTokens(ic, 2, alice)
		store.fail = false
		require.ErrorIs(t, err, errDiskFull)
		require.Equal(t, uint64(0), inv.CurrentSupply())

		released, err := sale.ClaimTokens(ic, 2, alice)
		require.NoError(t, err)
		require.Equal(t, uint64(2), released)
		_, err = sale.ClaimTokens(ic, 2, alice)
		require.ErrorIs(t, err, auction.ErrNothingToClaim)

		h, err := inv.HoldingsOf(alice)
		require.NoError(t, err)
		require.Equal(t, []state.UnitRange{{First: 1, Count: 2}}, h.Ranges)
	})
	t.Run("refund", func(t *testing.T) {
		ic := &auction.Invocation{Caller: alice, Time: start + 3600 + 1800}
		store.fail = true
		_, err := sale.ClaimRefund(ic, alice, proof)
		store.fail = false
		require.ErrorIs(t, err, errDiskFull)
		p, err := book.Get(alice)
		require.NoError(t, err)
		require.True(t, p.Amount.IsZero())

		amount, err := sale.ClaimRefund(ic, alice, proof)
		require.NoError(t, err)
		require.Equal(t, mustEther(t, "1.8"), amount)
		_, err = sale.ClaimRefund(ic, alice, proof)
		require.ErrorIs(t, err, auction.ErrUserAlreadyClaimed)

		p, err = book.Get(alice)
		require.NoError(t, err)
		require.Equal(t, mustEther(t, "1.8"), p.Amount)
		require.Equal(t, uint64(1), p.Count)
	})
	t.Run("withdraw", func(t *testing.T) {
		ic := &auction.Invocation{Caller: admin, Time: start + 3600 + 1800}
		store.fail = true
		_, err := sale.WithdrawFunds(ic)
		store.fail = false
		require.ErrorIs(t, err, errDiskFull)

		amount, err := sale.WithdrawFunds(ic)
		require.NoError(t, err)
		require.Equal(t, mustEther(t, "0.4"), amount)
		p, err := book.Get(treasury)
		require.NoError(t, err)
		require.Equal(t, mustEther(t, "0.4"), p.Amount)
		require.Equal(t, uint64(1), p.Count)
	})
}
