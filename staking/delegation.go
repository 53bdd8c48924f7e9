// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package staking

import (
	"errors"
	"math/big"
	"sync"

	"github.com/luxfi/ids"
)

var ErrTargetNotAdmitted = errors.New("delegation target is not admitted")

// DelegatedManager extends the Manager with a symbolic delegation
// target per stake. The target must be admitted when the stake opens
// but is never re-checked afterwards: revoking the target leaves the
// delegation in place. Targets gain no control over or claim to the
// delegated principal; the per-target aggregate exists purely for
// external consumption.
type DelegatedManager struct {
	*Manager

	mu        sync.RWMutex
	targets   map[uint64]ids.ShortID
	delegated map[ids.ShortID]*big.Int
}

// NewDelegatedManager wraps a Manager with delegation bookkeeping.
func NewDelegatedManager(m *Manager) *DelegatedManager {
	return &DelegatedManager{
		Manager:   m,
		targets:   make(map[uint64]ids.ShortID),
		delegated: make(map[ids.ShortID]*big.Int),
	}
}

// Open opens a stake delegated to target. Lock, minimum-stake, and
// admission semantics are those of Manager.Open.
func (d *DelegatedManager) Open(owner ids.ShortID, amount *big.Int, target ids.ShortID) (uint64, error) {
	if !d.registry.IsAdmitted(target) {
		return 0, ErrTargetNotAdmitted
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := d.Manager.Open(owner, amount)
	if err != nil {
		return 0, err
	}

	d.targets[id] = target
	total, ok := d.delegated[target]
	if !ok {
		total = new(big.Int)
		d.delegated[target] = total
	}
	total.Add(total, amount)
	return id, nil
}

// Close closes a stake and keeps the per-target aggregate in step with
// the principal reduction. The close semantics are those of
// Manager.Close.
func (d *DelegatedManager) Close(caller ids.ShortID, id uint64, amount *big.Int) (*big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	paid, err := d.Manager.Close(caller, id, amount)
	if err != nil {
		return nil, err
	}

	target, ok := d.targets[id]
	if !ok {
		return paid, nil
	}
	if total, ok := d.delegated[target]; ok {
		total.Sub(total, paid)
		if total.Sign() <= 0 {
			delete(d.delegated, target)
		}
	}
	if _, err := d.Manager.Stake(id); errors.Is(err, ErrStakeNotFound) {
		delete(d.targets, id)
	}
	return paid, nil
}

// Target returns the stake's delegation target, if it has one.
func (d *DelegatedManager) Target(id uint64) (ids.ShortID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	target, ok := d.targets[id]
	return target, ok
}

// DelegatedTo returns the aggregate principal currently delegated to
// target.
func (d *DelegatedManager) DelegatedTo(target ids.ShortID) *big.Int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	total, ok := d.delegated[target]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(total)
}

// Snapshot returns a copy of the manager's state including delegation
// targets.
func (d *DelegatedManager) Snapshot() *Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	snap := d.Manager.Snapshot()
	snap.Targets = make(map[uint64]ids.ShortID, len(d.targets))
	for id, target := range d.targets {
		snap.Targets[id] = target
	}
	return snap
}

// Restore replaces the manager's state with the snapshot's, rebuilding
// the per-target aggregates from the surviving stakes.
func (d *DelegatedManager) Restore(snap *Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.Manager.Restore(snap); err != nil {
		return err
	}

	d.targets = make(map[uint64]ids.ShortID, len(snap.Targets))
	d.delegated = make(map[ids.ShortID]*big.Int)
	for id, target := range snap.Targets {
		stake, err := d.Manager.Stake(id)
		if err != nil {
			return ErrCorruptSnapshot
		}
		d.targets[id] = target
		total, ok := d.delegated[target]
		if !ok {
			total = new(big.Int)
			d.delegated[target] = total
		}
		total.Add(total, stake.Principal)
	}
	return nil
}
