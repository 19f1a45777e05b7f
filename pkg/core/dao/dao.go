/*
Package dao provides typed access to the records stored by the sale and its
in-process collaborators. Every DAO is a cached layer over a lower store; a
private layer can be taken for a single operation and either persisted into
its parent or dropped.
*/
package dao

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/dauction/pkg/core/state"
	"github.com/nspcc-dev/dauction/pkg/core/storage"
	"github.com/nspcc-dev/dauction/pkg/io"
)

// Sale record kinds, stored right after the storage.STAuction prefix.
const (
	saleConfigKey   byte = 0x01
	saleGlobalKey   byte = 0x02
	saleSettingsKey byte = 0x03
	saleAccountKey  byte = 0x04
	saleAdminKey    byte = 0x05
)

// Inventory and payout record kinds.
const (
	inventoryInfoKey     byte = 0x01
	inventoryHoldingsKey byte = 0x02
	payoutKey            byte = 0x01
)

// Version is the storage schema version written on the first start.
const Version = "0.1.0"

// ErrVersionMismatch is returned on an attempt to open a store written by an
// incompatible version.
var ErrVersionMismatch = errors.New("storage version mismatch")

// Simple is memCached wrapper around DB, simple DAO implementation.
type Simple struct {
	Store *storage.MemCachedStore
}

// NewSimple creates new simple dao using provided backend store.
func NewSimple(backend storage.Store) *Simple {
	return &Simple{Store: storage.NewMemCachedStore(backend)}
}

// GetPrivate returns new DAO instance with another layer of wrapped
// MemCachedStore around the current DAO Store. Changes made to it are only
// visible to the parent after Persist.
func (dao *Simple) GetPrivate() *Simple {
	return NewSimple(dao.Store)
}

// Persist flushes all the changes made into the lower store. It returns the
// number of keys flushed.
func (dao *Simple) Persist() (int, error) {
	return dao.Store.Persist()
}

// GetAndDecode performs get operation and decoding with serializable structures.
func (dao *Simple) GetAndDecode(entity io.Serializable, key []byte) error {
	entityBytes, err := dao.Store.Get(key)
	if err != nil {
		return err
	}
	reader := io.NewBinReaderFromBuf(entityBytes)
	entity.DecodeBinary(reader)
	return reader.Err
}

// Put performs put operation with serializable structures.
func (dao *Simple) Put(entity io.Serializable, key []byte) error {
	buf := io.NewBufBinWriter()
	entity.EncodeBinary(buf.BinWriter)
	if buf.Err != nil {
		return buf.Err
	}
	dao.Store.Put(key, buf.Bytes())
	return nil
}

// -- start version.

// GetVersion returns the schema version stored, storage.ErrKeyNotFound if
// the store is empty.
func (dao *Simple) GetVersion() (string, error) {
	b, err := dao.Store.Get(storage.SYSVersion.Bytes())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PutVersion stores the schema version.
func (dao *Simple) PutVersion(v string) {
	dao.Store.Put(storage.SYSVersion.Bytes(), []byte(v))
}

// CheckVersion writes Version into an empty store or ensures the stored
// version matches it. It returns true if the store was empty.
func (dao *Simple) CheckVersion() (bool, error) {
	v, err := dao.GetVersion()
	if errors.Is(err, storage.ErrKeyNotFound) {
		dao.PutVersion(Version)
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if v != Version {
		return false, ErrVersionMismatch
	}
	return false, nil
}

// -- end version.

// -- start sale.

func makeSaleKey(kind byte) []byte {
	return []byte{byte(storage.STAuction), kind}
}

func makeAddressKey(prefix storage.KeyPrefix, kind byte, a common.Address) []byte {
	key := make([]byte, 2+common.AddressLength)
	key[0] = byte(prefix)
	key[1] = kind
	copy(key[2:], a[:])
	return key
}

// GetSaleConfig returns the sale configuration or storage.ErrKeyNotFound if
// it was never set.
func (dao *Simple) GetSaleConfig() (*state.SaleConfig, error) {
	cfg := new(state.SaleConfig)
	if err := dao.GetAndDecode(cfg, makeSaleKey(saleConfigKey)); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PutSaleConfig stores the sale configuration.
func (dao *Simple) PutSaleConfig(cfg *state.SaleConfig) error {
	return dao.Put(cfg, makeSaleKey(saleConfigKey))
}

// GetGlobal returns sale-wide counters, zeroed ones if nothing is stored yet.
func (dao *Simple) GetGlobal() (*state.Global, error) {
	g := new(state.Global)
	err := dao.GetAndDecode(g, makeSaleKey(saleGlobalKey))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return state.NewGlobal(), nil
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// PutGlobal stores sale-wide counters.
func (dao *Simple) PutGlobal(g *state.Global) error {
	return dao.Put(g, makeSaleKey(saleGlobalKey))
}

// GetSettings returns admin-controlled parameters or storage.ErrKeyNotFound.
func (dao *Simple) GetSettings() (*state.Settings, error) {
	s := new(state.Settings)
	if err := dao.GetAndDecode(s, makeSaleKey(saleSettingsKey)); err != nil {
		return nil, err
	}
	return s, nil
}

// PutSettings stores admin-controlled parameters.
func (dao *Simple) PutSettings(s *state.Settings) error {
	return dao.Put(s, makeSaleKey(saleSettingsKey))
}

// GetAccount returns the ledger record of a or storage.ErrKeyNotFound.
func (dao *Simple) GetAccount(a common.Address) (*state.Account, error) {
	acc := new(state.Account)
	if err := dao.GetAndDecode(acc, makeAddressKey(storage.STAuction, saleAccountKey, a)); err != nil {
		return nil, err
	}
	return acc, nil
}

// GetAccountOrNew returns the ledger record of a or an empty one.
func (dao *Simple) GetAccountOrNew(a common.Address) (*state.Account, error) {
	acc, err := dao.GetAccount(a)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return state.NewAccount(), nil
	}
	return acc, err
}

// PutAccount stores the ledger record of a.
func (dao *Simple) PutAccount(a common.Address, acc *state.Account) error {
	return dao.Put(acc, makeAddressKey(storage.STAuction, saleAccountKey, a))
}

// SeekAccounts iterates over all ledger records in address order until f
// returns false.
func (dao *Simple) SeekAccounts(f func(common.Address, *state.Account) bool) error {
	var err error
	dao.Store.Seek(storage.SeekRange{Prefix: makeSaleKey(saleAccountKey)}, func(k, v []byte) bool {
		acc := new(state.Account)
		if err = io.FromBytes(v, acc); err != nil {
			return false
		}
		return f(common.BytesToAddress(k[2:]), acc)
	})
	return err
}

// IsAdmin tells whether a holds the admin role.
func (dao *Simple) IsAdmin(a common.Address) bool {
	_, err := dao.Store.Get(makeAddressKey(storage.STAuction, saleAdminKey, a))
	return err == nil
}

// PutAdmin grants the admin role to a.
func (dao *Simple) PutAdmin(a common.Address) {
	dao.Store.Put(makeAddressKey(storage.STAuction, saleAdminKey, a), []byte{1})
}

// DeleteAdmin revokes the admin role from a.
func (dao *Simple) DeleteAdmin(a common.Address) {
	dao.Store.Delete(makeAddressKey(storage.STAuction, saleAdminKey, a))
}

// GetAdmins returns all role holders in address order.
func (dao *Simple) GetAdmins() []common.Address {
	var res []common.Address
	dao.Store.Seek(storage.SeekRange{Prefix: makeSaleKey(saleAdminKey)}, func(k, _ []byte) bool {
		res = append(res, common.BytesToAddress(k[2:]))
		return true
	})
	return res
}

// -- end sale.

// -- start inventory.

func makeHoldingsKey(inv, owner common.Address) []byte {
	key := make([]byte, 2+2*common.AddressLength)
	key[0] = byte(storage.STInventory)
	key[1] = inventoryHoldingsKey
	copy(key[2:], inv[:])
	copy(key[2+common.AddressLength:], owner[:])
	return key
}

// GetInventoryInfo returns totals of the inventory at inv or
// storage.ErrKeyNotFound.
func (dao *Simple) GetInventoryInfo(inv common.Address) (*state.InventoryInfo, error) {
	info := new(state.InventoryInfo)
	if err := dao.GetAndDecode(info, makeAddressKey(storage.STInventory, inventoryInfoKey, inv)); err != nil {
		return nil, err
	}
	return info, nil
}

// PutInventoryInfo stores totals of the inventory at inv.
func (dao *Simple) PutInventoryInfo(inv common.Address, info *state.InventoryInfo) error {
	return dao.Put(info, makeAddressKey(storage.STInventory, inventoryInfoKey, inv))
}

// GetHoldings returns the units of inventory inv owned by owner, empty if
// none.
func (dao *Simple) GetHoldings(inv, owner common.Address) (*state.Holdings, error) {
	h := new(state.Holdings)
	err := dao.GetAndDecode(h, makeHoldingsKey(inv, owner))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return h, nil
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// PutHoldings stores the units of inventory inv owned by owner.
func (dao *Simple) PutHoldings(inv, owner common.Address, h *state.Holdings) error {
	return dao.Put(h, makeHoldingsKey(inv, owner))
}

// SeekHoldings iterates over the owners of inventory inv in address order
// until f returns false.
func (dao *Simple) SeekHoldings(inv common.Address, f func(common.Address, *state.Holdings) bool) error {
	var err error
	prefix := makeAddressKey(storage.STInventory, inventoryHoldingsKey, inv)
	dao.Store.Seek(storage.SeekRange{Prefix: prefix}, func(k, v []byte) bool {
		h := new(state.Holdings)
		if err = io.FromBytes(v, h); err != nil {
			return false
		}
		return f(common.BytesToAddress(k[len(prefix):]), h)
	})
	return err
}

// -- end inventory.

// -- start payouts.

// GetPayout returns the amount owed to a, zero if none.
func (dao *Simple) GetPayout(a common.Address) (*state.Payout, error) {
	p := new(state.Payout)
	err := dao.GetAndDecode(p, makeAddressKey(storage.STPayout, payoutKey, a))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return state.NewPayout(), nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// PutPayout stores the amount owed to a.
func (dao *Simple) PutPayout(a common.Address, p *state.Payout) error {
	return dao.Put(p, makeAddressKey(storage.STPayout, payoutKey, a))
}

// SeekPayouts iterates over all payout records in address order until f
// returns false.
func (dao *Simple) SeekPayouts(f func(common.Address, *state.Payout) bool) error {
	var err error
	dao.Store.Seek(storage.SeekRange{Prefix: []byte{byte(storage.STPayout), payoutKey}}, func(k, v []byte) bool {
		p := new(state.Payout)
		if err = io.FromBytes(v, p); err != nil {
			return false
		}
		return f(common.BytesToAddress(k[2:]), p)
	})
	return err
}

// -- end payouts.
