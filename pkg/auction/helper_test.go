package auction

import (
	"crypto/ecdsa"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/core/dao"
	"github.com/nspcc-dev/dauction/pkg/core/state"
	"github.com/nspcc-dev/dauction/pkg/core/storage"
	"github.com/nspcc-dev/dauction/pkg/crypto/bidsig"
	"github.com/nspcc-dev/dauction/pkg/crypto/merkle"
	"github.com/nspcc-dev/dauction/pkg/encoding/ether"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	// saleStart is T in all the scenarios.
	saleStart   uint64 = 1_700_000_000
	saleEnd            = saleStart + 3600
	refundDelay uint64 = 1800
)

var (
	admin    = common.HexToAddress("0xad")
	alice    = common.HexToAddress("0xa11ce")
	bob      = common.HexToAddress("0xb0b")
	carol    = common.HexToAddress("0xca401")
	treasury = common.HexToAddress("0x7e")
	nft      = common.HexToAddress("0x4f7")
	otherNft = common.HexToAddress("0x4f8")

	testDomain = bidsig.Domain{
		Name:              "DutchAuction",
		Version:           "1",
		ChainID:           1,
		VerifyingContract: common.HexToAddress("0xa0c7"),
	}
)

func eth(s string) *uint256.Int {
	v, err := ether.Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

var errDiskFull = errors.New("disk full")

// flakyStore fails every batch write while fail is set.
type flakyStore struct {
	storage.Store
	fail bool
}

func (s *flakyStore) PutChangeSet(puts map[string][]byte) error {
	if s.fail {
		return errDiskFull
	}
	return s.Store.PutChangeSet(puts)
}

// testInventory keeps its units in the sale store, so mints share the
// fate of the operation making them.
type testInventory struct {
	store  storage.Store
	max    uint64
	paused bool
	err    error
}

func (inv *testInventory) MintTo(d *dao.Simple, recipient common.Address, quantity uint64) (uint64, error) {
	if inv.err != nil {
		return 0, inv.err
	}
	info, err := d.GetInventoryInfo(nft)
	if errors.Is(err, storage.ErrKeyNotFound) {
		info, err = &state.InventoryInfo{MaxSupply: inv.max}, nil
	}
	if err != nil {
		return 0, err
	}
	first := info.Minted + 1
	info.Minted += quantity
	h, err := d.GetHoldings(nft, recipient)
	if err != nil {
		return 0, err
	}
	h.Ranges = append(h.Ranges, state.UnitRange{First: first, Count: quantity})
	if err = d.PutHoldings(nft, recipient, h); err != nil {
		return 0, err
	}
	return first, d.PutInventoryInfo(nft, info)
}

func (inv *testInventory) CurrentSupply() uint64 {
	info, err := dao.NewSimple(inv.store).GetInventoryInfo(nft)
	if err != nil {
		return 0
	}
	return info.Minted
}

func (inv *testInventory) MaxSupply() uint64 { return inv.max }
func (inv *testInventory) Paused() bool      { return inv.paused }

// owned returns the number of units minted to a.
func (inv *testInventory) owned(a common.Address) uint64 {
	h, err := dao.NewSimple(inv.store).GetHoldings(nft, a)
	if err != nil {
		panic(err)
	}
	return h.Total()
}

func (inv *testInventory) Inventory(addr common.Address) (Inventory, error) {
	if addr != nft && addr != otherNft {
		return nil, errors.New("unknown inventory")
	}
	return inv, nil
}

type testPayer struct {
	store storage.Store
	err   error
}

func (p *testPayer) Pay(d *dao.Simple, to common.Address, amount *uint256.Int) error {
	if p.err != nil {
		return p.err
	}
	rec, err := d.GetPayout(to)
	if err != nil {
		return err
	}
	rec.Amount = new(uint256.Int).Add(rec.Amount, amount)
	rec.Count++
	return d.PutPayout(to, rec)
}

func (p *testPayer) record(a common.Address) *state.Payout {
	rec, err := dao.NewSimple(p.store).GetPayout(a)
	if err != nil {
		panic(err)
	}
	return rec
}

func (p *testPayer) total(a common.Address) *uint256.Int {
	return p.record(a).Amount
}

type testDelegations map[common.Address]common.Address

func (d testDelegations) CheckDelegateForAll(delegate, vault common.Address) bool {
	return d[delegate] == vault
}

type testSale struct {
	*Auction
	t         *testing.T
	store     storage.Store
	signerKey *ecdsa.PrivateKey
	inv       *testInventory
	payer     *testPayer
	tree      *merkle.Tree
}

func newTestSale(t *testing.T) *testSale {
	return newTestSaleOn(t, storage.NewMemoryStore())
}

func newTestSaleOn(t *testing.T, store storage.Store) *testSale {
	key, err := crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	require.NoError(t, err)
	tree, err := merkle.NewTree([]common.Address{alice, bob})
	require.NoError(t, err)

	s := &testSale{
		t:         t,
		store:     store,
		signerKey: key,
		inv:       &testInventory{store: store, max: 10},
		payer:     &testPayer{store: store},
		tree:      tree,
	}
	s.Auction, err = New(s.store, s.options(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func (s *testSale) options() Options {
	return Options{
		Domain:        testDomain,
		Admins:        []common.Address{admin},
		Signer:        crypto.PubkeyToAddress(s.signerKey.PublicKey),
		Treasury:      treasury,
		NftContract:   nft,
		AllowlistRoot: s.tree.Root(),
		Delegations:   testDelegations{carol: alice},
		Inventories:   s.inv,
		Payer:         s.payer,
	}
}

func testConfig() state.SaleConfig {
	return state.SaleConfig{
		StartPrice:  eth("2.0"),
		EndPrice:    eth("0.2"),
		Limit:       eth("10.0"),
		RefundDelay: refundDelay,
		StartTime:   saleStart,
		EndTime:     saleEnd,
	}
}

func (s *testSale) configure() *testSale {
	require.NoError(s.t, s.SetConfig(&Invocation{Caller: admin, Time: saleStart - 100}, testConfig()))
	return s
}

// request returns a bid request signed by the sale signer.
func (s *testSale) request(recipient common.Address, qty, nonce, deadline uint64) BidRequest {
	sig, err := bidsig.Sign(s.signerKey, testDomain, bidsig.Bid{
		Account:  recipient,
		Qty:      qty,
		Nonce:    nonce,
		Deadline: deadline,
	})
	require.NoError(s.t, err)
	return BidRequest{
		Quantity:  qty,
		Nonce:     nonce,
		Deadline:  deadline,
		Signature: sig,
		Recipient: recipient,
	}
}

// bid makes a properly signed bid for account with the next nonce.
func (s *testSale) bid(account common.Address, qty uint64, value string, now uint64) (*BidResult, error) {
	nonce, err := s.GetNonce(account)
	require.NoError(s.t, err)
	return s.Bid(&Invocation{Caller: account, Value: eth(value), Time: now},
		s.request(account, qty, nonce, now+300))
}

func (s *testSale) proof(a common.Address) []common.Hash {
	p, err := s.tree.AccountProof(a)
	require.NoError(s.t, err)
	return p
}
