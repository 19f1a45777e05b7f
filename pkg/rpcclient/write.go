package rpcclient

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/rpcapi"
)

// Write methods need the client to be created with Options.Token matching
// the node's AuthToken. Every one of them is executed on behalf of the
// invocation caller, the node supplies the time.

// Bid places a bid for the caller with the given authorization, inv.Value is
// the payment attached.
func (c *Client) Bid(inv rpcapi.Invocation, p rpcapi.BidParams) (*rpcapi.BidResult, error) {
	var resp = new(rpcapi.BidResult)
	if err := c.performRequest("bid", []any{inv, p}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ClaimTokens releases up to quantity vested units of the caller to the
// recipient (the caller if nil). It returns the number of units released.
func (c *Client) ClaimTokens(inv rpcapi.Invocation, quantity uint64, recipient *common.Address) (uint64, error) {
	var (
		params = []any{inv, quantity}
		resp   uint64
	)
	if recipient != nil {
		params = append(params, *recipient)
	}
	if err := c.performRequest("claimtokens", params, &resp); err != nil {
		return 0, err
	}
	return resp, nil
}

// ClaimTokensFor releases up to quantity vested units to the account, the
// caller must be an admin.
func (c *Client) ClaimTokensFor(inv rpcapi.Invocation, account common.Address, quantity uint64) (uint64, error) {
	var resp uint64
	if err := c.performRequest("claimtokensfor", []any{inv, account, quantity}, &resp); err != nil {
		return 0, err
	}
	return resp, nil
}

// ClaimRefund pays the refund due to the account. The caller is either the
// account itself or its delegate, proof is the allowlist membership proof.
func (c *Client) ClaimRefund(inv rpcapi.Invocation, account common.Address, proof []common.Hash) (*uint256.Int, error) {
	var resp *uint256.Int
	if proof == nil {
		proof = []common.Hash{}
	}
	if err := c.performRequest("claimrefund", []any{inv, account, proof}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// RefundUsers pays refunds to a batch of accounts. Failures are reported per
// account and don't affect the other ones.
func (c *Client) RefundUsers(inv rpcapi.Invocation, accounts []common.Address, proofs [][]common.Hash) ([]rpcapi.RefundResult, error) {
	var resp []rpcapi.RefundResult
	if err := c.performRequest("refundusers", []any{inv, accounts, proofs}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// WithdrawFunds sends the whole sale balance to the treasury and returns the
// amount sent.
func (c *Client) WithdrawFunds(inv rpcapi.Invocation) (*uint256.Int, error) {
	var resp *uint256.Int
	if err := c.performRequest("withdrawfunds", []any{inv}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// SetConfig configures the sale, it can only be done once.
func (c *Client) SetConfig(inv rpcapi.Invocation, cfg rpcapi.SaleConfig) error {
	return c.performWrite("setconfig", inv, cfg)
}

// Pause pauses the sale.
func (c *Client) Pause(inv rpcapi.Invocation) error {
	return c.performWrite("pause", inv)
}

// Unpause resumes the sale.
func (c *Client) Unpause(inv rpcapi.Invocation) error {
	return c.performWrite("unpause", inv)
}

// SetSignerAddress rotates the bid authorization signer.
func (c *Client) SetSignerAddress(inv rpcapi.Invocation, addr common.Address) error {
	return c.performWrite("setsigneraddress", inv, addr)
}

// SetTreasuryAddress changes the withdrawal target.
func (c *Client) SetTreasuryAddress(inv rpcapi.Invocation, addr common.Address) error {
	return c.performWrite("settreasuryaddress", inv, addr)
}

// SetNftContractAddress switches the sale to another inventory contract.
func (c *Client) SetNftContractAddress(inv rpcapi.Invocation, addr common.Address) error {
	return c.performWrite("setnftcontractaddress", inv, addr)
}

// SetAllowlistRoot replaces the refund allowlist digest.
func (c *Client) SetAllowlistRoot(inv rpcapi.Invocation, root common.Hash) error {
	return c.performWrite("setallowlistroot", inv, root)
}

// GrantAdmin adds an account to the admin set.
func (c *Client) GrantAdmin(inv rpcapi.Invocation, account common.Address) error {
	return c.performWrite("grantadmin", inv, account)
}

// RevokeAdmin removes an account from the admin set.
func (c *Client) RevokeAdmin(inv rpcapi.Invocation, account common.Address) error {
	return c.performWrite("revokeadmin", inv, account)
}

func (c *Client) performWrite(method string, inv rpcapi.Invocation, params ...any) error {
	var ok bool
	return c.performRequest(method, append([]any{inv}, params...), &ok)
}
