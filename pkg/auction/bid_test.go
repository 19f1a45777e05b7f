package auction

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nspcc-dev/dauction/pkg/crypto/bidsig"
	"github.com/stretchr/testify/require"
)

func TestBid(t *testing.T) {
	s := newTestSale(t).configure()
	events := make(chan Event, 10)
	s.SubscribeForEvents(events)

	res, err := s.bid(alice, 2, "2.2", saleStart+1800)
	require.NoError(t, err)
	require.Equal(t, eth("1.1"), res.Price)
	require.Equal(t, uint64(1), res.Nonce)

	ud, err := s.GetUserData(alice)
	require.NoError(t, err)
	require.Equal(t, eth("2.2"), ud.Contribution)
	require.Equal(t, uint64(2), ud.UnitsBid)

	_, err = s.bid(alice, 3, "1.95", saleStart+2700)
	require.NoError(t, err)
	ud, err = s.GetUserData(alice)
	require.NoError(t, err)
	require.Equal(t, eth("4.15"), ud.Contribution)
	require.Equal(t, uint64(5), ud.UnitsBid)
	require.False(t, ud.RefundClaimed)

	nonce, err := s.GetNonce(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(2), nonce)

	st, err := s.GetState()
	require.NoError(t, err)
	require.Equal(t, uint64(5), st.Committed)
	require.Equal(t, eth("4.15"), st.Balance)
	require.Nil(t, st.ClearingPrice)

	e := <-events
	require.Equal(t, BidEvent{Account: alice, Quantity: 2, Price: eth("1.1"), Value: eth("2.2")}, e)
	e = <-events
	require.Equal(t, BidEventName, e.EventName())
	require.Equal(t, eth("0.65"), e.(BidEvent).Price)
	// Nothing is minted on bid.
	require.Equal(t, uint64(0), s.inv.CurrentSupply())
}

func TestBidOverpayment(t *testing.T) {
	s := newTestSale(t).configure()
	_, err := s.bid(alice, 1, "3", saleStart)
	require.NoError(t, err)
	ud, err := s.GetUserData(alice)
	require.NoError(t, err)
	require.Equal(t, eth("3"), ud.Contribution)
}

func TestBidGift(t *testing.T) {
	s := newTestSale(t).configure()
	req := s.request(bob, 1, 0, saleStart+300)
	_, err := s.Bid(&Invocation{Caller: alice, Value: eth("2"), Time: saleStart}, req)
	require.NoError(t, err)

	ud, err := s.GetUserData(bob)
	require.NoError(t, err)
	require.Equal(t, uint64(1), ud.UnitsBid)
	ud, err = s.GetUserData(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(0), ud.UnitsBid)
}

func TestBidWindow(t *testing.T) {
	s := newTestSale(t).configure()
	for _, now := range []uint64{saleStart - 1, saleEnd, saleEnd + 100} {
		_, err := s.bid(alice, 1, "2", now)
		require.ErrorIs(t, err, ErrInvalidStartEndTime)
		var we *WindowError
		require.True(t, errors.As(err, &we))
		require.Equal(t, saleStart, we.Start)
		require.Equal(t, saleEnd, we.End)
	}
	_, err := s.bid(alice, 1, "2", saleEnd-1)
	require.NoError(t, err)
}

func TestBidReplay(t *testing.T) {
	s := newTestSale(t).configure()
	req := s.request(alice, 1, 0, saleStart+300)
	ic := &Invocation{Caller: alice, Value: eth("2"), Time: saleStart}
	_, err := s.Bid(ic, req)
	require.NoError(t, err)

	_, err = s.Bid(ic, req)
	require.ErrorIs(t, err, ErrNonceMismatch)
	var ne *NonceError
	require.True(t, errors.As(err, &ne))
	require.Equal(t, uint64(1), ne.Expected)
	require.Equal(t, uint64(0), ne.Got)

	ud, err := s.GetUserData(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1), ud.UnitsBid)
}

func TestBidErrors(t *testing.T) {
	t.Run("config not set", func(t *testing.T) {
		s := newTestSale(t)
		_, err := s.bid(alice, 1, "2", saleStart)
		require.ErrorIs(t, err, ErrConfigNotSet)
	})
	t.Run("zero quantity", func(t *testing.T) {
		s := newTestSale(t).configure()
		_, err := s.bid(alice, 0, "2", saleStart)
		require.ErrorIs(t, err, ErrInvalidQuantity)
	})
	t.Run("paused", func(t *testing.T) {
		s := newTestSale(t).configure()
		require.NoError(t, s.Pause(&Invocation{Caller: admin}))
		_, err := s.bid(alice, 1, "2", saleStart)
		require.ErrorIs(t, err, ErrPaused)
	})
	t.Run("inventory paused", func(t *testing.T) {
		s := newTestSale(t).configure()
		s.inv.paused = true
		_, err := s.bid(alice, 1, "2", saleStart)
		require.ErrorIs(t, err, ErrInventoryPaused)
	})
	t.Run("zero recipient", func(t *testing.T) {
		s := newTestSale(t).configure()
		_, err := s.bid(common.Address{}, 1, "2", saleStart)
		require.ErrorIs(t, err, ErrZeroAddress)
	})
	t.Run("expired", func(t *testing.T) {
		s := newTestSale(t).configure()
		req := s.request(alice, 1, 0, saleStart+10)
		_, err := s.Bid(&Invocation{Caller: alice, Value: eth("2"), Time: saleStart + 11}, req)
		require.ErrorIs(t, err, ErrBidExpired)
		var ee *ExpiredError
		require.True(t, errors.As(err, &ee))
		require.Equal(t, saleStart+10, ee.Deadline)

		// The deadline itself is still valid.
		_, err = s.Bid(&Invocation{Caller: alice, Value: eth("2"), Time: saleStart + 10}, req)
		require.NoError(t, err)
	})
	t.Run("wrong signer", func(t *testing.T) {
		s := newTestSale(t).configure()
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		req := s.request(alice, 1, 0, saleStart+300)
		req.Signature, err = bidsig.Sign(key, testDomain, bidsig.Bid{Account: alice, Qty: 1, Deadline: saleStart + 300})
		require.NoError(t, err)
		_, err = s.Bid(&Invocation{Caller: alice, Value: eth("2"), Time: saleStart}, req)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})
	t.Run("forged stale request", func(t *testing.T) {
		s := newTestSale(t).configure()
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		// Both the nonce and the deadline are wrong, the signature is checked first.
		req := s.request(alice, 1, 5, saleStart)
		req.Signature, err = bidsig.Sign(key, testDomain, bidsig.Bid{Account: alice, Qty: 1, Nonce: 5, Deadline: saleStart})
		require.NoError(t, err)
		_, err = s.Bid(&Invocation{Caller: alice, Value: eth("2"), Time: saleStart + 1}, req)
		require.ErrorIs(t, err, ErrInvalidSignature)
		require.NotErrorIs(t, err, ErrNonceMismatch)
		require.NotErrorIs(t, err, ErrBidExpired)
	})
	t.Run("tampered quantity", func(t *testing.T) {
		s := newTestSale(t).configure()
		req := s.request(alice, 1, 0, saleStart+300)
		req.Quantity = 2
		_, err := s.Bid(&Invocation{Caller: alice, Value: eth("4"), Time: saleStart}, req)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})
	t.Run("other sale", func(t *testing.T) {
		s := newTestSale(t).configure()
		other := testDomain
		other.VerifyingContract = common.HexToAddress("0xbad")
		sig, err := bidsig.Sign(s.signerKey, other, bidsig.Bid{Account: alice, Qty: 1, Deadline: saleStart + 300})
		require.NoError(t, err)
		req := s.request(alice, 1, 0, saleStart+300)
		req.Signature = sig
		_, err = s.Bid(&Invocation{Caller: alice, Value: eth("2"), Time: saleStart}, req)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})
	t.Run("not enough value", func(t *testing.T) {
		s := newTestSale(t).configure()
		_, err := s.bid(alice, 2, "2.19", saleStart+1800)
		require.ErrorIs(t, err, ErrNotEnoughValue)
		_, err = s.Bid(&Invocation{Caller: alice, Time: saleStart + 1800}, s.request(alice, 1, 0, saleStart+2000))
		require.ErrorIs(t, err, ErrNotEnoughValue)
	})
	t.Run("purchase limit", func(t *testing.T) {
		s := newTestSale(t).configure()
		_, err := s.bid(alice, 4, "8", saleStart)
		require.NoError(t, err)
		_, err = s.bid(alice, 1, "2.000000000000000001", saleStart)
		require.ErrorIs(t, err, ErrPurchaseLimitReached)
		_, err = s.bid(alice, 1, "2", saleStart)
		require.NoError(t, err)
	})
}

func TestBidMaxSupply(t *testing.T) {
	s := newTestSale(t).configure()
	s.inv.max = 5
	_, err := s.bid(alice, 4, "1", saleEnd-1)
	require.NoError(t, err)

	before, err := s.GetState()
	require.NoError(t, err)
	_, err = s.bid(bob, 2, "0.5", saleEnd-1)
	require.ErrorIs(t, err, ErrMaxSupplyReached)

	after, err := s.GetState()
	require.NoError(t, err)
	require.Equal(t, before, after)
	ud, err := s.GetUserData(bob)
	require.NoError(t, err)
	require.True(t, ud.Contribution.IsZero())
	require.Equal(t, uint64(0), ud.UnitsBid)
	nonce, err := s.GetNonce(bob)
	require.NoError(t, err)
	require.Equal(t, uint64(0), nonce)

	_, err = s.bid(bob, 1, "0.4", saleEnd-1)
	require.NoError(t, err)
	st, err := s.GetState()
	require.NoError(t, err)
	require.Equal(t, uint64(5), st.Committed)
}
