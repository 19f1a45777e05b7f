package rpcsrv

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/dauction/pkg/auction"
	"github.com/nspcc-dev/dauction/pkg/config"
	"github.com/nspcc-dev/dauction/pkg/core/inventory"
	"github.com/nspcc-dev/dauction/pkg/rpcapi"
	"github.com/nspcc-dev/dauction/pkg/services/rpcsrv/params"
)

func (s *Server) getVersion(_ params.Params) (any, *rpcapi.Error) {
	d := s.sale.Domain()
	return &rpcapi.Version{
		Node:    config.Version,
		Auction: d.VerifyingContract,
		ChainID: d.ChainID,
		Name:    d.Name,
		Version: d.Version,
		Time:    s.now(),
	}, nil
}

func (s *Server) getConfig(_ params.Params) (any, *rpcapi.Error) {
	cfg, err := s.sale.GetConfig()
	if err != nil {
		return nil, rpcapi.NewAuctionError(err)
	}
	return rpcapi.NewSaleConfig(cfg), nil
}

// timeFromParam returns the optional time parameter, the node clock if it's
// omitted.
func (s *Server) timeFromParam(p *params.Param) (uint64, *rpcapi.Error) {
	if p == nil {
		return s.now(), nil
	}
	t, err := p.GetUint64()
	if err != nil {
		return 0, rpcapi.WrapErrorWithData(rpcapi.ErrInvalidParams, fmt.Sprintf("invalid time: %s", err))
	}
	return t, nil
}

func addressFromParam(p *params.Param) (common.Address, *rpcapi.Error) {
	a, err := p.GetAddress()
	if err != nil {
		return common.Address{}, rpcapi.WrapErrorWithData(rpcapi.ErrInvalidParams, fmt.Sprintf("invalid address: %s", err))
	}
	return a, nil
}

func (s *Server) getCurrentPrice(ps params.Params) (any, *rpcapi.Error) {
	now, respErr := s.timeFromParam(ps.Value(0))
	if respErr != nil {
		return nil, respErr
	}
	price, err := s.sale.GetCurrentPriceInWei(now)
	if err != nil {
		return nil, rpcapi.NewAuctionError(err)
	}
	return &rpcapi.Price{Time: now, Price: price}, nil
}

func (s *Server) getUserData(ps params.Params) (any, *rpcapi.Error) {
	account, respErr := addressFromParam(ps.Value(0))
	if respErr != nil {
		return nil, respErr
	}
	d, err := s.sale.GetUserData(account)
	if err != nil {
		return nil, rpcapi.NewAuctionError(err)
	}
	return rpcapi.NewUserData(d), nil
}

func (s *Server) getNonce(ps params.Params) (any, *rpcapi.Error) {
	account, respErr := addressFromParam(ps.Value(0))
	if respErr != nil {
		return nil, respErr
	}
	nonce, err := s.sale.GetNonce(account)
	if err != nil {
		return nil, rpcapi.NewAuctionError(err)
	}
	return nonce, nil
}

func (s *Server) getClaimable(ps params.Params) (any, *rpcapi.Error) {
	account, respErr := addressFromParam(ps.Value(0))
	if respErr != nil {
		return nil, respErr
	}
	now, respErr := s.timeFromParam(ps.Value(1))
	if respErr != nil {
		return nil, respErr
	}
	n, err := s.sale.Claimable(account, now)
	if err != nil {
		return nil, rpcapi.NewAuctionError(err)
	}
	return n, nil
}

func (s *Server) getRefund(ps params.Params) (any, *rpcapi.Error) {
	account, respErr := addressFromParam(ps.Value(0))
	if respErr != nil {
		return nil, respErr
	}
	due, err := s.sale.RefundDue(account)
	if err != nil {
		return nil, rpcapi.NewAuctionError(err)
	}
	return due, nil
}

func (s *Server) getSaleState(_ params.Params) (any, *rpcapi.Error) {
	st, err := s.sale.GetState()
	if err != nil {
		return nil, rpcapi.NewAuctionError(err)
	}
	settings, err := s.sale.Settings()
	if err != nil {
		return nil, rpcapi.NewAuctionError(err)
	}
	return &rpcapi.SaleState{
		Committed:     st.Committed,
		Balance:       st.Balance,
		ClearingPrice: st.ClearingPrice,
		Paused:        st.Paused,
		Admins:        st.Admins,
		Signer:        settings.Signer,
		Treasury:      settings.Treasury,
		NftContract:   settings.NftContract,
		AllowlistRoot: settings.AllowlistRoot,
	}, nil
}

func (s *Server) getPayouts(ps params.Params) (any, *rpcapi.Error) {
	if p := ps.Value(0); p != nil {
		account, respErr := addressFromParam(p)
		if respErr != nil {
			return nil, respErr
		}
		payout, err := s.payouts.Get(account)
		if err != nil {
			return nil, rpcapi.NewInternalServerError(err.Error())
		}
		if payout.Count == 0 {
			return []rpcapi.Payout{}, nil
		}
		return []rpcapi.Payout{{Account: account, Amount: payout.Amount, Count: payout.Count}}, nil
	}
	all, err := s.payouts.All()
	if err != nil {
		return nil, rpcapi.NewInternalServerError(err.Error())
	}
	res := make([]rpcapi.Payout, 0, len(all))
	for account, payout := range all {
		res = append(res, rpcapi.Payout{Account: account, Amount: payout.Amount, Count: payout.Count})
	}
	slices.SortFunc(res, func(a, b rpcapi.Payout) int {
		return bytes.Compare(a.Account[:], b.Account[:])
	})
	return res, nil
}

func (s *Server) getInventory(ps params.Params) (any, *rpcapi.Error) {
	var addr common.Address
	if p := ps.Value(0); p != nil {
		var respErr *rpcapi.Error
		addr, respErr = addressFromParam(p)
		if respErr != nil {
			return nil, respErr
		}
	} else {
		settings, err := s.sale.Settings()
		if err != nil {
			return nil, rpcapi.NewAuctionError(err)
		}
		addr = settings.NftContract
	}
	inv, err := s.inventories.Get(addr)
	if errors.Is(err, inventory.ErrUnknown) {
		return nil, rpcapi.WrapErrorWithData(rpcapi.ErrInvalidParams, err.Error())
	}
	if err != nil {
		return nil, rpcapi.NewInternalServerError(err.Error())
	}
	owners, err := inv.Owners()
	if err != nil {
		return nil, rpcapi.NewInternalServerError(err.Error())
	}
	return &rpcapi.Inventory{
		Address:       inv.Address(),
		MaxSupply:     inv.MaxSupply(),
		CurrentSupply: inv.CurrentSupply(),
		Paused:        inv.Paused(),
		Owners:        owners,
	}, nil
}

func (s *Server) bid(ic *auction.Invocation, ps params.Params) (any, *rpcapi.Error) {
	var p rpcapi.BidParams
	if err := ps.Value(0).Decode(&p); err != nil {
		return nil, rpcapi.WrapErrorWithData(rpcapi.ErrInvalidParams, fmt.Sprintf("invalid bid: %s", err))
	}
	res, err := s.sale.Bid(ic, p.ToRequest())
	if err != nil {
		return nil, rpcapi.NewAuctionError(err)
	}
	return &rpcapi.BidResult{Price: res.Price, Nonce: res.Nonce}, nil
}

func (s *Server) claimTokens(ic *auction.Invocation, ps params.Params) (any, *rpcapi.Error) {
	qty, err := ps.Value(0).GetUint64()
	if err != nil {
		return nil, rpcapi.WrapErrorWithData(rpcapi.ErrInvalidParams, fmt.Sprintf("invalid quantity: %s", err))
	}
	recipient := ic.Caller
	if p := ps.Value(1); p != nil {
		var respErr *rpcapi.Error
		recipient, respErr = addressFromParam(p)
		if respErr != nil {
			return nil, respErr
		}
	}
	n, err := s.sale.ClaimTokens(ic, qty, recipient)
	if err != nil {
		return nil, rpcapi.NewAuctionError(err)
	}
	return n, nil
}

func (s *Server) claimTokensFor(ic *auction.Invocation, ps params.Params) (any, *rpcapi.Error) {
	account, respErr := addressFromParam(ps.Value(0))
	if respErr != nil {
		return nil, respErr
	}
	qty, err := ps.Value(1).GetUint64()
	if err != nil {
		return nil, rpcapi.WrapErrorWithData(rpcapi.ErrInvalidParams, fmt.Sprintf("invalid quantity: %s", err))
	}
	n, err := s.sale.ClaimTokensFor(ic, account, qty)
	if err != nil {
		return nil, rpcapi.NewAuctionError(err)
	}
	return n, nil
}

// proofFromParam returns the optional Merkle proof parameter, an empty one if
// it's omitted.
func proofFromParam(p *params.Param) ([]common.Hash, *rpcapi.Error) {
	if p == nil || p.IsNull() {
		return nil, nil
	}
	proof, err := p.GetHashes()
	if err != nil {
		return nil, rpcapi.WrapErrorWithData(rpcapi.ErrInvalidParams, fmt.Sprintf("invalid proof: %s", err))
	}
	return proof, nil
}

func (s *Server) claimRefund(ic *auction.Invocation, ps params.Params) (any, *rpcapi.Error) {
	account, respErr := addressFromParam(ps.Value(0))
	if respErr != nil {
		return nil, respErr
	}
	proof, respErr := proofFromParam(ps.Value(1))
	if respErr != nil {
		return nil, respErr
	}
	amount, err := s.sale.ClaimRefund(ic, account, proof)
	if err != nil {
		return nil, rpcapi.NewAuctionError(err)
	}
	return amount, nil
}

func (s *Server) refundUsers(ic *auction.Invocation, ps params.Params) (any, *rpcapi.Error) {
	accounts, err := ps.Value(0).GetAddresses()
	if err != nil {
		return nil, rpcapi.WrapErrorWithData(rpcapi.ErrInvalidParams, fmt.Sprintf("invalid accounts: %s", err))
	}
	raw, err := ps.Value(1).GetArray()
	if err != nil {
		return nil, rpcapi.WrapErrorWithData(rpcapi.ErrInvalidParams, fmt.Sprintf("invalid proofs: %s", err))
	}
	proofs := make([][]common.Hash, len(raw))
	for i := range raw {
		var respErr *rpcapi.Error
		proofs[i], respErr = proofFromParam(&raw[i])
		if respErr != nil {
			return nil, respErr
		}
	}
	results, err := s.sale.RefundUsers(ic, accounts, proofs)
	if err != nil {
		return nil, rpcapi.NewAuctionError(err)
	}
	res := make([]rpcapi.RefundResult, len(results))
	for i, r := range results {
		res[i] = rpcapi.RefundResult{Account: r.Account, Amount: r.Amount}
		if r.Err != nil {
			res[i].Error = rpcapi.NewAuctionError(r.Err)
		}
	}
	return res, nil
}

func (s *Server) withdrawFunds(ic *auction.Invocation, _ params.Params) (any, *rpcapi.Error) {
	amount, err := s.sale.WithdrawFunds(ic)
	if err != nil {
		return nil, rpcapi.NewAuctionError(err)
	}
	return amount, nil
}

func (s *Server) setConfig(ic *auction.Invocation, ps params.Params) (any, *rpcapi.Error) {
	var cfg rpcapi.SaleConfig
	if err := ps.Value(0).Decode(&cfg); err != nil {
		return nil, rpcapi.WrapErrorWithData(rpcapi.ErrInvalidParams, fmt.Sprintf("invalid config: %s", err))
	}
	return wrapWrite(s.sale.SetConfig(ic, cfg.ToState()))
}

func (s *Server) pause(ic *auction.Invocation, _ params.Params) (any, *rpcapi.Error) {
	return wrapWrite(s.sale.Pause(ic))
}

func (s *Server) unpause(ic *auction.Invocation, _ params.Params) (any, *rpcapi.Error) {
	return wrapWrite(s.sale.Unpause(ic))
}

func (s *Server) setSignerAddress(ic *auction.Invocation, ps params.Params) (any, *rpcapi.Error) {
	return s.withAddress(ps, func(a common.Address) error { return s.sale.SetSignerAddress(ic, a) })
}

func (s *Server) setTreasuryAddress(ic *auction.Invocation, ps params.Params) (any, *rpcapi.Error) {
	return s.withAddress(ps, func(a common.Address) error { return s.sale.SetTreasuryAddress(ic, a) })
}

func (s *Server) setNftContractAddress(ic *auction.Invocation, ps params.Params) (any, *rpcapi.Error) {
	return s.withAddress(ps, func(a common.Address) error { return s.sale.SetNftContractAddress(ic, a) })
}

func (s *Server) grantAdmin(ic *auction.Invocation, ps params.Params) (any, *rpcapi.Error) {
	return s.withAddress(ps, func(a common.Address) error { return s.sale.GrantAdmin(ic, a) })
}

func (s *Server) revokeAdmin(ic *auction.Invocation, ps params.Params) (any, *rpcapi.Error) {
	return s.withAddress(ps, func(a common.Address) error { return s.sale.RevokeAdmin(ic, a) })
}

func (s *Server) setAllowlistRoot(ic *auction.Invocation, ps params.Params) (any, *rpcapi.Error) {
	root, err := ps.Value(0).GetHash()
	if err != nil {
		return nil, rpcapi.WrapErrorWithData(rpcapi.ErrInvalidParams, fmt.Sprintf("invalid root: %s", err))
	}
	return wrapWrite(s.sale.SetAllowlistRoot(ic, root))
}

func (s *Server) withAddress(ps params.Params, f func(common.Address) error) (any, *rpcapi.Error) {
	addr, respErr := addressFromParam(ps.Value(0))
	if respErr != nil {
		return nil, respErr
	}
	return wrapWrite(f(addr))
}

func wrapWrite(err error) (any, *rpcapi.Error) {
	if err != nil {
		return nil, rpcapi.NewAuctionError(err)
	}
	return true, nil
}
