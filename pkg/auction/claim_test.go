package auction

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/dauction/pkg/core/storage"
	"github.com/stretchr/testify/require"
)

func TestClaimTokens(t *testing.T) {
	s := newTestSale(t).configure()
	_, err := s.bid(alice, 5, "7.75", saleStart+900)
	require.NoError(t, err)

	half := saleStart + 1800
	n, err := s.Claimable(alice, half)
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)

	events := make(chan Event, 10)
	s.SubscribeForEvents(events)
	released, err := s.ClaimTokens(&Invocation{Caller: alice, Time: half}, 10, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(2), released)
	require.Equal(t, uint64(2), s.inv.owned(bob))
	require.Equal(t, ClaimEvent{Account: alice, Recipient: bob, Quantity: 2, FirstUnit: 1}, <-events)

	_, err = s.ClaimTokens(&Invocation{Caller: alice, Time: half}, 10, bob)
	require.ErrorIs(t, err, ErrNothingToClaim)

	// Partial request within the entitlement.
	released, err = s.ClaimTokens(&Invocation{Caller: alice, Time: saleEnd}, 1, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1), released)
	released, err = s.ClaimTokens(&Invocation{Caller: alice, Time: saleEnd + 100}, 10, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(2), released)
	require.Equal(t, uint64(3), s.inv.owned(alice))

	ud, err := s.GetUserData(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(5), ud.UnitsReleased)
	_, err = s.ClaimTokens(&Invocation{Caller: alice, Time: saleEnd + 200}, 1, alice)
	require.ErrorIs(t, err, ErrNothingToClaim)

	// An earlier clock never releases more.
	n, err = s.Claimable(alice, half)
	require.NoError(t, err)
	require.Equal(t, uint64(0), n)
}

func TestClaimTokensErrors(t *testing.T) {
	t.Run("config not set", func(t *testing.T) {
		s := newTestSale(t)
		_, err := s.ClaimTokens(&Invocation{Caller: alice, Time: saleEnd}, 1, alice)
		require.ErrorIs(t, err, ErrConfigNotSet)
	})
	t.Run("no bids", func(t *testing.T) {
		s := newTestSale(t).configure()
		_, err := s.ClaimTokens(&Invocation{Caller: alice, Time: saleEnd}, 1, alice)
		require.ErrorIs(t, err, ErrNothingToClaim)
	})
	t.Run("paused", func(t *testing.T) {
		s := newTestSale(t).configure()
		_, err := s.bid(alice, 1, "2", saleStart)
		require.NoError(t, err)
		require.NoError(t, s.Pause(&Invocation{Caller: admin}))
		_, err = s.ClaimTokens(&Invocation{Caller: alice, Time: saleEnd}, 1, alice)
		require.ErrorIs(t, err, ErrPaused)
	})
	t.Run("zero recipient", func(t *testing.T) {
		s := newTestSale(t).configure()
		_, err := s.bid(alice, 1, "2", saleStart)
		require.NoError(t, err)
		_, err = s.ClaimTokens(&Invocation{Caller: alice, Time: saleEnd}, 1, common.Address{})
		require.ErrorIs(t, err, ErrZeroAddress)
	})
	t.Run("mint failure", func(t *testing.T) {
		s := newTestSale(t).configure()
		_, err := s.bid(alice, 1, "2", saleStart)
		require.NoError(t, err)
		s.inv.err = errors.New("out of gas")
		_, err = s.ClaimTokens(&Invocation{Caller: alice, Time: saleEnd}, 1, alice)
		require.Error(t, err)

		ud, err := s.GetUserData(alice)
		require.NoError(t, err)
		require.Equal(t, uint64(0), ud.UnitsReleased)

		s.inv.err = nil
		released, err := s.ClaimTokens(&Invocation{Caller: alice, Time: saleEnd}, 1, alice)
		require.NoError(t, err)
		require.Equal(t, uint64(1), released)
	})
}

func TestClaimTokensFor(t *testing.T) {
	s := newTestSale(t).configure()
	_, err := s.bid(alice, 2, "4", saleStart)
	require.NoError(t, err)

	_, err = s.ClaimTokensFor(&Invocation{Caller: bob, Time: saleEnd}, alice, 2)
	require.ErrorIs(t, err, ErrMissingRole)

	released, err := s.ClaimTokensFor(&Invocation{Caller: admin, Time: saleEnd}, alice, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(2), released)
	require.Equal(t, uint64(2), s.inv.owned(alice))
	require.Equal(t, uint64(0), s.inv.owned(admin))
}

func TestClaimTokensStoreFailure(t *testing.T) {
	store := &flakyStore{Store: storage.NewMemoryStore()}
	s := newTestSaleOn(t, store).configure()
	_, err := s.bid(alice, 2, "4", saleStart)
	require.NoError(t, err)

	store.fail = true
	_, err = s.ClaimTokens(&Invocation{Caller: alice, Time: saleEnd}, 2, alice)
	require.ErrorIs(t, err, errDiskFull)
	store.fail = false
	require.Equal(t, uint64(0), s.inv.owned(alice))
	require.Equal(t, uint64(0), s.inv.CurrentSupply())

	released, err := s.ClaimTokens(&Invocation{Caller: alice, Time: saleEnd}, 2, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(2), released)
	_, err = s.ClaimTokens(&Invocation{Caller: alice, Time: saleEnd}, 2, alice)
	require.ErrorIs(t, err, ErrNothingToClaim)
	require.Equal(t, uint64(2), s.inv.owned(alice))
	require.Equal(t, uint64(2), s.inv.CurrentSupply())
}
