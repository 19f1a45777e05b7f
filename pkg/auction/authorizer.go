package auction

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/dauction/pkg/crypto/bidsig"
)

// BidRequest is a signed authorization to buy Quantity units credited to
// Recipient. Nonce must match the recipient's ledger nonce.
type BidRequest struct {
	Quantity  uint64
	Nonce     uint64
	Deadline  uint64
	Signature []byte
	Recipient common.Address
}

// authorizer checks bid authorizations issued for a single sale instance.
// It never changes state, the nonce is advanced by the bid itself.
type authorizer struct {
	domain   bidsig.Domain
	verifier Verifier
}

// digest returns the message the authorization key signs for req.
func (a *authorizer) digest(req *BidRequest) (common.Hash, error) {
	return bidsig.Hash(a.domain, bidsig.Bid{
		Account:  req.Recipient,
		Qty:      req.Quantity,
		Nonce:    req.Nonce,
		Deadline: req.Deadline,
	})
}

// authorize checks req was signed by signer, then that it's still valid at
// now and carries the recipient's current nonce.
func (a *authorizer) authorize(signer common.Address, req *BidRequest, nonce, now uint64) error {
	h, err := a.digest(req)
	if err != nil {
		return ErrInvalidSignature
	}
	if !a.verifier.Verify(signer, h, req.Signature) {
		return ErrInvalidSignature
	}
	if now > req.Deadline {
		return &ExpiredError{Deadline: req.Deadline, Now: now}
	}
	if req.Nonce != nonce {
		return &NonceError{Expected: nonce, Got: req.Nonce}
	}
	return nil
}
