package bidsig

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func testDomain() Domain {
	return Domain{
		Name:              "DutchAuction",
		Version:           "1",
		ChainID:           31337,
		VerifyingContract: common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
	}
}

func TestSignRecover(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)
	bid := Bid{Account: common.HexToAddress("0x01"), Qty: 2, Nonce: 0, Deadline: 1700000000}

	sig, err := Sign(key, testDomain(), bid)
	require.NoError(t, err)
	require.Len(t, sig, crypto.SignatureLength)
	require.Contains(t, []byte{27, 28}, sig[crypto.RecoveryIDOffset])

	h, err := Hash(testDomain(), bid)
	require.NoError(t, err)
	got, err := Recover(h, sig)
	require.NoError(t, err)
	require.Equal(t, signer, got)
	require.True(t, Verifier{}.Verify(signer, h, sig))

	// Raw {0, 1} recovery id is accepted too.
	raw := append([]byte{}, sig...)
	raw[crypto.RecoveryIDOffset] -= 27
	require.True(t, Verifier{}.Verify(signer, h, raw))
}

func TestBindings(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)
	bid := Bid{Account: common.HexToAddress("0x01"), Qty: 2, Nonce: 3, Deadline: 100}
	sig, err := Sign(key, testDomain(), bid)
	require.NoError(t, err)

	check := func(d Domain, b Bid) bool {
		h, err := Hash(d, b)
		require.NoError(t, err)
		return Verifier{}.Verify(signer, h, sig)
	}
	require.True(t, check(testDomain(), bid))

	other := testDomain()
	other.VerifyingContract = common.HexToAddress("0x02")
	require.False(t, check(other, bid), "another sale")
	other = testDomain()
	other.ChainID = 1
	require.False(t, check(other, bid), "another chain")

	for _, b := range []Bid{
		{Account: common.HexToAddress("0x02"), Qty: 2, Nonce: 3, Deadline: 100},
		{Account: common.HexToAddress("0x01"), Qty: 3, Nonce: 3, Deadline: 100},
		{Account: common.HexToAddress("0x01"), Qty: 2, Nonce: 4, Deadline: 100},
		{Account: common.HexToAddress("0x01"), Qty: 2, Nonce: 3, Deadline: 101},
	} {
		require.False(t, check(testDomain(), b), "%+v", b)
	}
}

func TestRecoverMalformed(t *testing.T) {
	h := crypto.Keccak256Hash([]byte("x"))
	_, err := Recover(h, make([]byte, 64))
	require.ErrorIs(t, err, ErrSignatureLength)

	_, err = Recover(h, make([]byte, 65))
	require.ErrorIs(t, err, ErrSignatureValues)
	require.False(t, Verifier{}.Verify(common.Address{}, h, make([]byte, 65)))
}

func TestSeparatorDiffers(t *testing.T) {
	s1, err := testDomain().Separator()
	require.NoError(t, err)
	d := testDomain()
	d.Version = "2"
	s2, err := d.Separator()
	require.NoError(t, err)
	require.NotEqual(t, s1, s2)
}
