/*
Package bidsig implements bid authorizations: EIP-712 typed-data messages
Bid(address account,uint256 qty,uint256 nonce,uint256 deadline) signed with a
secp256k1 key and bound to a sale instance through the domain separator
(name, version, chain id and the sale address as verifying contract).
*/
package bidsig

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// PrimaryType is the EIP-712 primary type of a bid authorization.
const PrimaryType = "Bid"

// Errors returned on malformed signatures.
var (
	ErrSignatureLength = errors.New("invalid signature length")
	ErrSignatureValues = errors.New("invalid signature values")
)

var types = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	PrimaryType: {
		{Name: "account", Type: "address"},
		{Name: "qty", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
	},
}

// Domain identifies a sale instance.
type Domain struct {
	Name              string
	Version           string
	ChainID           uint64
	VerifyingContract common.Address
}

// Bid is the authorized tuple.
type Bid struct {
	Account  common.Address
	Qty      uint64
	Nonce    uint64
	Deadline uint64
}

func (d Domain) typed() apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              d.Name,
		Version:           d.Version,
		ChainId:           (*math.HexOrDecimal256)(new(big.Int).SetUint64(d.ChainID)),
		VerifyingContract: d.VerifyingContract.Hex(),
	}
}

func (b Bid) message() apitypes.TypedDataMessage {
	return apitypes.TypedDataMessage{
		"account":  b.Account.Hex(),
		"qty":      new(big.Int).SetUint64(b.Qty),
		"nonce":    new(big.Int).SetUint64(b.Nonce),
		"deadline": new(big.Int).SetUint64(b.Deadline),
	}
}

// Separator returns the EIP-712 domain separator.
func (d Domain) Separator() (common.Hash, error) {
	td := apitypes.TypedData{Types: types, PrimaryType: PrimaryType, Domain: d.typed()}
	h, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("domain hash: %w", err)
	}
	return common.BytesToHash(h), nil
}

// Hash returns the digest that is signed for b within domain d.
func Hash(d Domain, b Bid) (common.Hash, error) {
	td := apitypes.TypedData{
		Types:       types,
		PrimaryType: PrimaryType,
		Domain:      d.typed(),
		Message:     b.message(),
	}
	domainHash, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("domain hash: %w", err)
	}
	messageHash, err := td.HashStruct(PrimaryType, td.Message)
	if err != nil {
		return common.Hash{}, fmt.Errorf("message hash: %w", err)
	}
	return crypto.Keccak256Hash([]byte("\x19\x01"), domainHash, messageHash), nil
}

// Sign produces a 65-byte [R || S || V] signature with V in {27, 28}.
func Sign(key *ecdsa.PrivateKey, d Domain, b Bid) ([]byte, error) {
	h, err := Hash(d, b)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(h[:], key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// Recover returns the address of the key that signed digest. Both {0, 1}
// and {27, 28} recovery ids are accepted, high-s signatures are not.
func Recover(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, ErrSignatureLength
	}
	s := bytes.Clone(sig)
	if s[crypto.RecoveryIDOffset] >= 27 {
		s[crypto.RecoveryIDOffset] -= 27
	}
	r, ss := new(big.Int).SetBytes(s[:32]), new(big.Int).SetBytes(s[32:64])
	if !crypto.ValidateSignatureValues(s[crypto.RecoveryIDOffset], r, ss, true) {
		return common.Address{}, ErrSignatureValues
	}
	pub, err := crypto.SigToPub(digest[:], s)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Verifier checks signatures by recovering the signing address.
type Verifier struct{}

// Verify tells whether sig over digest was produced by signer.
func (Verifier) Verify(signer common.Address, digest common.Hash, sig []byte) bool {
	got, err := Recover(digest, sig)
	return err == nil && got == signer
}
