// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package staking

import (
	"errors"
	"math/big"

	"github.com/luxfi/ids"

	"github.com/luxfi/stakevault/token"
)

var (
	ErrInsufficientShares = errors.New("insufficient share balance")

	one = big.NewInt(1)
)

// Vault converts between asset units and share units and tracks the
// non-transferable share balances. Total assets are always read live
// from the ledger, so plain transfers into the vault address (reward
// pulls included) appreciate every outstanding share.
//
// Conversion applies a virtual offset of one share and one asset unit.
// With the vault-favoring rounding below, inflating the vault balance
// ahead of a victim's deposit yields the attacker at most one rounding
// unit instead of a proportional cut.
//
// The Vault is not safe for concurrent use; the Manager serializes all
// access to it.
type Vault struct {
	asset token.Ledger
	addr  ids.ShortID

	totalShares *big.Int
	shares      map[ids.ShortID]*big.Int
}

// NewVault creates a Vault holding its assets at addr on the given
// ledger.
func NewVault(asset token.Ledger, addr ids.ShortID) *Vault {
	return &Vault{
		asset:       asset,
		addr:        addr,
		totalShares: new(big.Int),
		shares:      make(map[ids.ShortID]*big.Int),
	}
}

// Address returns the ledger address holding the vault's assets.
func (v *Vault) Address() ids.ShortID {
	return v.addr
}

// TotalShares returns the number of shares outstanding.
func (v *Vault) TotalShares() *big.Int {
	return new(big.Int).Set(v.totalShares)
}

// TotalAssets returns the vault's current asset balance. It is never
// cached: only withdrawals and claims may decrease it.
func (v *Vault) TotalAssets() *big.Int {
	return v.asset.BalanceOf(v.addr)
}

// SharesOf returns owner's share balance.
func (v *Vault) SharesOf(owner ids.ShortID) *big.Int {
	balance, ok := v.shares[owner]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(balance)
}

// SharesForDeposit returns the shares minted for depositing assets,
// rounded down. Callers must reject non-positive amounts first.
func (v *Vault) SharesForDeposit(assets *big.Int) *big.Int {
	num := new(big.Int).Mul(assets, new(big.Int).Add(v.totalShares, one))
	den := new(big.Int).Add(v.TotalAssets(), one)
	return num.Div(num, den)
}

// AssetsForShares returns the asset value of shares, rounded down.
func (v *Vault) AssetsForShares(shares *big.Int) *big.Int {
	num := new(big.Int).Mul(shares, new(big.Int).Add(v.TotalAssets(), one))
	den := new(big.Int).Add(v.totalShares, one)
	return num.Div(num, den)
}

// SharesForWithdrawal returns the shares burned to pay out a fixed
// asset amount, rounded up so the vault never pays out more value than
// it burns.
func (v *Vault) SharesForWithdrawal(assets *big.Int) *big.Int {
	num := new(big.Int).Mul(assets, new(big.Int).Add(v.totalShares, one))
	den := new(big.Int).Add(v.TotalAssets(), one)
	num.Add(num, new(big.Int).Sub(den, one))
	return num.Div(num, den)
}

// mint credits freshly issued shares to owner.
func (v *Vault) mint(owner ids.ShortID, shares *big.Int) {
	if shares.Sign() == 0 {
		return
	}
	balance, ok := v.shares[owner]
	if !ok {
		balance = new(big.Int)
		v.shares[owner] = balance
	}
	balance.Add(balance, shares)
	v.totalShares.Add(v.totalShares, shares)
}

// burn destroys shares held by owner.
func (v *Vault) burn(owner ids.ShortID, shares *big.Int) error {
	balance, ok := v.shares[owner]
	if !ok || balance.Cmp(shares) < 0 {
		return ErrInsufficientShares
	}
	balance.Sub(balance, shares)
	if balance.Sign() == 0 {
		delete(v.shares, owner)
	}
	v.totalShares.Sub(v.totalShares, shares)
	return nil
}

// shareBalances returns a copy of all share balances, for snapshots.
func (v *Vault) shareBalances() map[ids.ShortID]*big.Int {
	balances := make(map[ids.ShortID]*big.Int, len(v.shares))
	for owner, balance := range v.shares {
		balances[owner] = new(big.Int).Set(balance)
	}
	return balances
}

// setShares replaces all share balances, for snapshot restore.
func (v *Vault) setShares(balances map[ids.ShortID]*big.Int) {
	v.totalShares = new(big.Int)
	v.shares = make(map[ids.ShortID]*big.Int, len(balances))
	for owner, balance := range balances {
		if balance.Sign() <= 0 {
			continue
		}
		v.shares[owner] = new(big.Int).Set(balance)
		v.totalShares.Add(v.totalShares, balance)
	}
}
