package rpcclient

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/rpcapi"
)

// GetVersion returns the version information and the sale identity of the
// node.
func (c *Client) GetVersion() (*rpcapi.Version, error) {
	var resp = new(rpcapi.Version)
	if err := c.performRequest("getversion", nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetConfig returns the sale configuration, it fails if the sale is not
// configured yet.
func (c *Client) GetConfig() (*rpcapi.SaleConfig, error) {
	var resp = new(rpcapi.SaleConfig)
	if err := c.performRequest("getconfig", nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetCurrentPrice returns the unit price at the node's current time.
func (c *Client) GetCurrentPrice() (*rpcapi.Price, error) {
	return c.getPrice(nil)
}

// GetPriceAt returns the unit price at the given Unix time.
func (c *Client) GetPriceAt(t uint64) (*rpcapi.Price, error) {
	return c.getPrice([]any{t})
}

func (c *Client) getPrice(params []any) (*rpcapi.Price, error) {
	var resp = new(rpcapi.Price)
	if err := c.performRequest("getcurrentprice", params, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetUserData returns the sale record of the account.
func (c *Client) GetUserData(account common.Address) (*rpcapi.UserData, error) {
	var resp = new(rpcapi.UserData)
	if err := c.performRequest("getuserdata", []any{account}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetNonce returns the nonce the next bid authorization of the account must
// carry.
func (c *Client) GetNonce(account common.Address) (uint64, error) {
	var resp uint64
	if err := c.performRequest("getnonce", []any{account}, &resp); err != nil {
		return 0, err
	}
	return resp, nil
}

// GetClaimable returns the number of units the account can claim now.
func (c *Client) GetClaimable(account common.Address) (uint64, error) {
	var resp uint64
	if err := c.performRequest("getclaimable", []any{account}, &resp); err != nil {
		return 0, err
	}
	return resp, nil
}

// GetRefund returns the refund due to the account, it's zero once the
// refund is paid.
func (c *Client) GetRefund(account common.Address) (*uint256.Int, error) {
	var resp *uint256.Int
	if err := c.performRequest("getrefund", []any{account}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetSaleState returns the global sale state along with the current
// collaborator settings.
func (c *Client) GetSaleState() (*rpcapi.SaleState, error) {
	var resp = new(rpcapi.SaleState)
	if err := c.performRequest("getsalestate", nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetPayouts returns all payments made by the sale ordered by account. If
// account is not nil, only its payments are returned.
func (c *Client) GetPayouts(account *common.Address) ([]rpcapi.Payout, error) {
	var (
		params []any
		resp   []rpcapi.Payout
	)
	if account != nil {
		params = []any{*account}
	}
	if err := c.performRequest("getpayouts", params, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetInventory returns the state of the inventory contract, the current sale
// one is used if addr is nil.
func (c *Client) GetInventory(addr *common.Address) (*rpcapi.Inventory, error) {
	var (
		params []any
		resp   = new(rpcapi.Inventory)
	)
	if addr != nil {
		params = []any{*addr}
	}
	if err := c.performRequest("getinventory", params, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
