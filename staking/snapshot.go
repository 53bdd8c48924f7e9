// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package staking

import (
	"math/big"

	"github.com/luxfi/ids"
)

// Snapshot is a point-in-time copy of all staking state, used by the
// state package to persist and restore across restarts. Locked totals
// and per-owner indexes are derived from the stakes on restore rather
// than stored.
type Snapshot struct {
	NextStakeID uint64
	Stakes      []*Stake
	Shares      map[ids.ShortID]*big.Int
	Targets     map[uint64]ids.ShortID
}

// Snapshot returns a copy of the manager's state.
func (m *Manager) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stakes := make([]*Stake, 0, len(m.stakes))
	for _, stake := range m.stakes {
		stakes = append(stakes, stake.copy())
	}
	return &Snapshot{
		NextStakeID: m.nextStakeID,
		Stakes:      stakes,
		Shares:      m.vault.shareBalances(),
	}
}

// Restore replaces the manager's state with the snapshot's. The stake
// index and locked totals are rebuilt from the stake records.
func (m *Manager) Restore(snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stakes := make(map[uint64]*Stake, len(snap.Stakes))
	for _, stake := range snap.Stakes {
		if stake.ID == 0 || stake.ID >= snap.NextStakeID {
			return ErrCorruptSnapshot
		}
		if stake.Principal == nil || stake.Principal.Sign() <= 0 {
			return ErrCorruptSnapshot
		}
		if _, ok := stakes[stake.ID]; ok {
			return ErrCorruptSnapshot
		}
		stakes[stake.ID] = stake.copy()
	}
	for _, balance := range snap.Shares {
		if balance == nil || balance.Sign() < 0 {
			return ErrCorruptSnapshot
		}
	}

	m.stakes = stakes
	m.nextStakeID = max(snap.NextStakeID, 1)
	m.ownerStakes = make(map[ids.ShortID]map[uint64]struct{})
	m.lockedTotals = make(map[ids.ShortID]*big.Int)
	for _, stake := range m.stakes {
		m.indexStakeLocked(stake)
		m.addLockedLocked(stake.Owner, stake.Principal)
	}
	m.vault.setShares(snap.Shares)
	return nil
}
