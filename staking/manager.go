// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package staking

import (
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/stakevault/config"
	"github.com/luxfi/stakevault/metrics"
	"github.com/luxfi/stakevault/registry"
	"github.com/luxfi/stakevault/rewards"
	"github.com/luxfi/stakevault/utils/timer/mockable"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrNotAdmitted         = errors.New("participant is not admitted")
	ErrBelowMinimumStake   = errors.New("amount below minimum stake")
	ErrStakeNotFound       = errors.New("stake not found")
	ErrStakeLocked         = errors.New("stake is still within its lock period")
	ErrNotOwner            = errors.New("caller does not own the stake")
	ErrExceedsPrincipal    = errors.New("requested amount exceeds stake principal")
	ErrNothingToClaim      = errors.New("nothing to claim")
	ErrExceedsWithdrawable = errors.New("requested amount exceeds withdrawable balance")
	ErrCorruptSnapshot     = errors.New("corrupt staking snapshot")
)

// Manager owns the stake records and drives the vault. Every mutating
// operation executes as one atomic step under the manager lock: it
// first pulls pending rewards into the vault (best-effort, never
// blocking), then performs share math against the updated balance,
// then mutates the stake bookkeeping. A failed operation leaves no
// partial effect.
type Manager struct {
	mu sync.RWMutex

	cfg      *config.Config
	vault    *Vault
	dist     *rewards.Distributor
	registry registry.Registry
	clock    *mockable.Clock
	log      log.Logger
	metrics  *metrics.Metrics

	stakes       map[uint64]*Stake
	ownerStakes  map[ids.ShortID]map[uint64]struct{}
	lockedTotals map[ids.ShortID]*big.Int
	nextStakeID  uint64
}

// NewManager wires a Manager. metrics may be nil.
func NewManager(
	cfg *config.Config,
	vault *Vault,
	dist *rewards.Distributor,
	reg registry.Registry,
	clock *mockable.Clock,
	logger log.Logger,
	m *metrics.Metrics,
) *Manager {
	return &Manager{
		cfg:          cfg,
		vault:        vault,
		dist:         dist,
		registry:     reg,
		clock:        clock,
		log:          logger,
		metrics:      m,
		stakes:       make(map[uint64]*Stake),
		ownerStakes:  make(map[ids.ShortID]map[uint64]struct{}),
		lockedTotals: make(map[ids.ShortID]*big.Int),
		nextStakeID:  1,
	}
}

// Config returns the configuration record the manager reads.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Open locks amount of the owner's assets into a new stake and mints
// shares for it. The owner must be admitted, and the first stake since
// the owner's locked total last reached zero must meet the configured
// minimum. The stake captures the current global lock period. Returns
// the new stake id; ids are never reused.
func (m *Manager) Open(owner ids.ShortID, amount *big.Int) (uint64, error) {
	if amount == nil || amount.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	if !m.registry.IsAdmitted(owner) {
		return 0, ErrNotAdmitted
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.collect()

	lockedTotal := m.lockedTotalLocked(owner)
	if lockedTotal.Sign() == 0 && amount.Cmp(m.cfg.MinimumStake()) < 0 {
		return 0, ErrBelowMinimumStake
	}

	// Share price is taken before the deposit lands on the vault
	// balance.
	shares := m.vault.SharesForDeposit(amount)
	if err := m.vault.asset.Transfer(owner, m.vault.addr, amount); err != nil {
		return 0, fmt.Errorf("deposit transfer: %w", err)
	}
	m.vault.mint(owner, shares)

	id := m.nextStakeID
	m.nextStakeID++

	stake := &Stake{
		ID:         id,
		Owner:      owner,
		Principal:  new(big.Int).Set(amount),
		CreatedAt:  m.clock.Time(),
		LockPeriod: m.cfg.LockPeriod(),
	}
	m.stakes[id] = stake
	m.indexStakeLocked(stake)
	m.addLockedLocked(owner, amount)

	m.metrics.IncStakesOpened()
	m.log.Info("stake opened",
		"id", id,
		"owner", owner,
		"amount", amount.String(),
		"lockPeriod", stake.LockPeriod,
	)
	return id, nil
}

// Close pays out part or all of a stake's principal and burns the
// matching shares. A zero amount closes the full remaining principal.
//
// While the owner is admitted, only the owner may close, the effective
// lock period applies, and a partial close may not strand a locked
// total below the configured minimum. Once the owner has been revoked
// both restrictions are waived and any caller may close the stake; the
// principal is still paid to the owner, guaranteeing exits remain
// possible after a revocation.
func (m *Manager) Close(caller ids.ShortID, id uint64, amount *big.Int) (*big.Int, error) {
	if amount != nil && amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stake, ok := m.stakes[id]
	if !ok {
		return nil, ErrStakeNotFound
	}

	if m.registry.IsAdmitted(stake.Owner) {
		if caller != stake.Owner {
			return nil, ErrNotOwner
		}
		if m.clock.Time().Before(stake.UnlockAt(m.cfg.LockPeriod())) {
			return nil, ErrStakeLocked
		}
	}

	m.collect()

	payout := stake.Principal
	if amount != nil && amount.Sign() > 0 {
		if amount.Cmp(stake.Principal) > 0 {
			return nil, ErrExceedsPrincipal
		}
		payout = amount
	}
	payout = new(big.Int).Set(payout)

	if m.registry.IsAdmitted(stake.Owner) {
		remaining := new(big.Int).Sub(m.lockedTotalLocked(stake.Owner), payout)
		if remaining.Sign() > 0 && remaining.Cmp(m.cfg.MinimumStake()) < 0 {
			return nil, ErrBelowMinimumStake
		}
	}

	shares := m.vault.SharesForWithdrawal(payout)
	if err := m.vault.burn(stake.Owner, shares); err != nil {
		return nil, err
	}
	if err := m.vault.asset.Transfer(m.vault.addr, stake.Owner, payout); err != nil {
		return nil, fmt.Errorf("withdrawal transfer: %w", err)
	}

	stake.Principal.Sub(stake.Principal, payout)
	m.subLockedLocked(stake.Owner, payout)
	if stake.Principal.Sign() == 0 {
		delete(m.stakes, id)
		m.unindexStakeLocked(stake)
		m.metrics.IncStakesClosed()
	}

	m.log.Info("stake closed",
		"id", id,
		"owner", stake.Owner,
		"caller", caller,
		"amount", payout.String(),
		"remaining", stake.Principal.String(),
	)
	return payout, nil
}

// ClaimYield pays out compounded yield without touching locked
// principal or waiting out any lock. The withdrawable balance is the
// asset value of the owner's shares minus the owner's locked total. A
// zero amount claims everything withdrawable.
func (m *Manager) ClaimYield(owner ids.ShortID, amount *big.Int) (*big.Int, error) {
	if amount != nil && amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.collect()

	withdrawable := m.withdrawableLocked(owner)
	if withdrawable.Sign() == 0 {
		return nil, ErrNothingToClaim
	}

	payout := withdrawable
	if amount != nil && amount.Sign() > 0 {
		if amount.Cmp(withdrawable) > 0 {
			return nil, ErrExceedsWithdrawable
		}
		payout = amount
	}
	payout = new(big.Int).Set(payout)

	shares := m.vault.SharesForWithdrawal(payout)
	if err := m.vault.burn(owner, shares); err != nil {
		return nil, err
	}
	if err := m.vault.asset.Transfer(m.vault.addr, owner, payout); err != nil {
		return nil, fmt.Errorf("claim transfer: %w", err)
	}

	m.metrics.IncYieldClaims()
	m.log.Info("yield claimed",
		"owner", owner,
		"amount", payout.String(),
	)
	return payout, nil
}

// Stake returns a copy of the stake with the given id.
func (m *Manager) Stake(id uint64) (*Stake, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stake, ok := m.stakes[id]
	if !ok {
		return nil, ErrStakeNotFound
	}
	return stake.copy(), nil
}

// StakeIDs returns the ids of the owner's active stakes in ascending
// order.
func (m *Manager) StakeIDs(owner ids.ShortID) []uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	index := m.ownerStakes[owner]
	out := make([]uint64, 0, len(index))
	for id := range index {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// LockedTotal returns the sum of the owner's active stake principals.
func (m *Manager) LockedTotal(owner ids.ShortID) *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lockedTotalLocked(owner)
}

// SharesOf returns the owner's share balance.
func (m *Manager) SharesOf(owner ids.ShortID) *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vault.SharesOf(owner)
}

// AssetValueOf returns the asset value of the owner's shares. This
// doubles as the vote-weight hook for external governance.
func (m *Manager) AssetValueOf(owner ids.ShortID) *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vault.AssetsForShares(m.vault.SharesOf(owner))
}

// Withdrawable returns the yield the owner could claim right now.
func (m *Manager) Withdrawable(owner ids.ShortID) *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.withdrawableLocked(owner)
}

// TotalShares returns the vault's outstanding shares.
func (m *Manager) TotalShares() *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vault.TotalShares()
}

// TotalAssets returns the vault's live asset balance.
func (m *Manager) TotalAssets() *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vault.TotalAssets()
}

// collect pulls pending rewards into the vault balance. It is the
// fail-open step at the top of every mutating operation: an
// underfunded distributor yields zero and the operation proceeds.
func (m *Manager) collect() {
	moved := m.dist.Collect(m.vault.addr)
	m.metrics.MarkCollect(moved.Sign() > 0)
	if moved.Sign() > 0 {
		m.log.Debug("rewards compounded",
			"amount", moved.String(),
		)
	}
}

func (m *Manager) withdrawableLocked(owner ids.ShortID) *big.Int {
	value := m.vault.AssetsForShares(m.vault.SharesOf(owner))
	value.Sub(value, m.lockedTotalLocked(owner))
	if value.Sign() < 0 {
		value.SetInt64(0)
	}
	return value
}

func (m *Manager) lockedTotalLocked(owner ids.ShortID) *big.Int {
	total, ok := m.lockedTotals[owner]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(total)
}

func (m *Manager) addLockedLocked(owner ids.ShortID, amount *big.Int) {
	total, ok := m.lockedTotals[owner]
	if !ok {
		total = new(big.Int)
		m.lockedTotals[owner] = total
	}
	total.Add(total, amount)
}

func (m *Manager) subLockedLocked(owner ids.ShortID, amount *big.Int) {
	total, ok := m.lockedTotals[owner]
	if !ok {
		return
	}
	total.Sub(total, amount)
	if total.Sign() <= 0 {
		delete(m.lockedTotals, owner)
	}
}

func (m *Manager) indexStakeLocked(stake *Stake) {
	index, ok := m.ownerStakes[stake.Owner]
	if !ok {
		index = make(map[uint64]struct{})
		m.ownerStakes[stake.Owner] = index
	}
	index[stake.ID] = struct{}{}
}

func (m *Manager) unindexStakeLocked(stake *Stake) {
	index, ok := m.ownerStakes[stake.Owner]
	if !ok {
		return
	}
	delete(index, stake.ID)
	if len(index) == 0 {
		delete(m.ownerStakes, stake.Owner)
	}
}
