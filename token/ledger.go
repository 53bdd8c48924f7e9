// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package token provides the fungible asset ledger the staking vault
// settles against. Holders are addressed by ids.ShortID and balances
// are arbitrary-precision integers.
package token

import (
	"errors"
	"math/big"
	"sync"

	"github.com/luxfi/ids"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount")
)

// Ledger is the transfer interface consumed by the staking vault and the
// reward distributor. Implementations must apply each call atomically.
type Ledger interface {
	// BalanceOf returns the current balance of holder. The returned value
	// must not be mutated by the caller.
	BalanceOf(holder ids.ShortID) *big.Int

	// Transfer moves amount from one holder to another. It fails without
	// any effect if the sender's balance is insufficient or the amount is
	// not positive.
	Transfer(from, to ids.ShortID, amount *big.Int) error
}

// SimpleLedger is an in-memory Ledger. It backs single-process
// deployments and tests; production deployments swap in a ledger bound
// to the host chain's asset.
type SimpleLedger struct {
	mu       sync.RWMutex
	balances map[ids.ShortID]*big.Int
}

// NewSimpleLedger creates an empty in-memory ledger.
func NewSimpleLedger() *SimpleLedger {
	return &SimpleLedger{
		balances: make(map[ids.ShortID]*big.Int),
	}
}

// Mint credits freshly issued tokens to holder. Used for genesis
// allocations and for funding reward distributors.
func (l *SimpleLedger) Mint(holder ids.ShortID, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[holder]
	if !ok {
		balance = new(big.Int)
		l.balances[holder] = balance
	}
	balance.Add(balance, amount)
	return nil
}

func (l *SimpleLedger) BalanceOf(holder ids.ShortID) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	balance, ok := l.balances[holder]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(balance)
}

func (l *SimpleLedger) Transfer(from, to ids.ShortID, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fromBalance, ok := l.balances[from]
	if !ok || fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	toBalance, ok := l.balances[to]
	if !ok {
		toBalance = new(big.Int)
		l.balances[to] = toBalance
	}

	fromBalance.Sub(fromBalance, amount)
	toBalance.Add(toBalance, amount)
	return nil
}
