// Package delegation keeps delegate-for-all relations between accounts.
package delegation

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/dauction/pkg/auction"
)

// Registry maps vaults to the delegates allowed to act for them.
type Registry struct {
	lock   sync.RWMutex
	vaults map[common.Address]map[common.Address]struct{}
}

var _ auction.Delegations = (*Registry)(nil)

// NewRegistry creates a registry from vault to delegates mapping.
func NewRegistry(m map[common.Address][]common.Address) *Registry {
	r := &Registry{vaults: make(map[common.Address]map[common.Address]struct{}, len(m))}
	for vault, delegates := range m {
		for _, d := range delegates {
			r.Delegate(d, vault)
		}
	}
	return r
}

// Delegate allows delegate to act for vault.
func (r *Registry) Delegate(delegate, vault common.Address) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.vaults[vault] == nil {
		r.vaults[vault] = make(map[common.Address]struct{})
	}
	r.vaults[vault][delegate] = struct{}{}
}

// Revoke removes delegate from vault's delegates.
func (r *Registry) Revoke(delegate, vault common.Address) {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.vaults[vault], delegate)
}

// CheckDelegateForAll implements auction.Delegations.
func (r *Registry) CheckDelegateForAll(delegate, vault common.Address) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	_, ok := r.vaults[vault][delegate]
	return ok
}
