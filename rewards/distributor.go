// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rewards implements a pull-based reward emission source. Each
// receiver accrues tokens continuously at a configured per-second rate
// and collects the accrued amount on demand.
//
// Collection comes in two flavors with deliberately different failure
// contracts: Collect is the best-effort background pull embedded in
// every mutating vault operation and never fails, while CollectTo is
// the explicit harvest and fails loudly.
package rewards

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/stakevault/config"
	"github.com/luxfi/stakevault/token"
	"github.com/luxfi/stakevault/utils/timer/mockable"
)

var (
	ErrNotAuthorized = errors.New("caller lacks the administrator capability")
	ErrInvalidRate   = errors.New("invalid emission rate")
	ErrNoEmission    = errors.New("no emission configured for receiver")
	ErrNoTimeElapsed = errors.New("no time elapsed since last collection")
	ErrUnderfunded   = errors.New("distributor balance below owed rewards")
)

// Emission is the per-receiver emission configuration. LastPull is
// seeded to the configuration's creation time, never to an epoch
// default, so no reward accrues retroactively before registration.
type Emission struct {
	Rate     *big.Int // tokens emitted per second
	LastPull time.Time
}

// Distributor owns the emission configurations and the funding balance
// they pay out of. It is funded by plain transfers to its address.
type Distributor struct {
	mu sync.Mutex

	cfg       *config.Config
	ledger    token.Ledger
	addr      ids.ShortID
	clock     *mockable.Clock
	log       log.Logger
	emissions map[ids.ShortID]*Emission
}

// NewDistributor creates a Distributor paying out of addr on ledger.
func NewDistributor(
	cfg *config.Config,
	ledger token.Ledger,
	addr ids.ShortID,
	clock *mockable.Clock,
	logger log.Logger,
) *Distributor {
	return &Distributor{
		cfg:       cfg,
		ledger:    ledger,
		addr:      addr,
		clock:     clock,
		log:       logger,
		emissions: make(map[ids.ShortID]*Emission),
	}
}

// Address returns the funding address rewards are paid out of.
func (d *Distributor) Address() ids.ShortID {
	return d.addr
}

// Emission returns a copy of the receiver's emission configuration.
func (d *Distributor) Emission(receiver ids.ShortID) (Emission, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	emission, ok := d.emissions[receiver]
	if !ok {
		return Emission{}, false
	}
	return Emission{
		Rate:     new(big.Int).Set(emission.Rate),
		LastPull: emission.LastPull,
	}, true
}

// SetRate configures the emission rate for a receiver. Only the
// administrator may call. The first configuration for a receiver seeds
// LastPull to the current time. A later change first settles the window
// accrued at the old rate, so a change never re-prices already-elapsed
// time; if the distributor cannot pay out that window the change is
// rejected rather than silently blending rates.
func (d *Distributor) SetRate(caller, receiver ids.ShortID, rate *big.Int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if caller != d.cfg.Admin() {
		return ErrNotAuthorized
	}
	if rate == nil || rate.Sign() < 0 {
		return ErrInvalidRate
	}

	now := d.clock.Time()
	emission, ok := d.emissions[receiver]
	if !ok {
		d.emissions[receiver] = &Emission{
			Rate:     new(big.Int).Set(rate),
			LastPull: now,
		}
		d.log.Info("emission configured",
			"receiver", receiver,
			"rate", rate.String(),
		)
		return nil
	}

	if owed := d.owed(emission, now); owed.Sign() > 0 {
		if err := d.ledger.Transfer(d.addr, receiver, owed); err != nil {
			return ErrUnderfunded
		}
		emission.LastPull = now
	}

	emission.Rate.Set(rate)
	d.log.Info("emission rate changed",
		"receiver", receiver,
		"rate", rate.String(),
	)
	return nil
}

// Collect releases the rewards accrued for receiver. It is the
// fail-open path: when nothing is owed or the distributor is
// underfunded it returns zero without advancing LastPull, so callers
// embedding it in other operations are never blocked.
func (d *Distributor) Collect(receiver ids.ShortID) *big.Int {
	d.mu.Lock()
	defer d.mu.Unlock()

	emission, ok := d.emissions[receiver]
	if !ok {
		return new(big.Int)
	}

	now := d.clock.Time()
	owed := d.owed(emission, now)
	if owed.Sign() == 0 {
		return new(big.Int)
	}
	if err := d.ledger.Transfer(d.addr, receiver, owed); err != nil {
		// Underfunded. The unpaid window stays open and is retried on
		// the next collect.
		d.log.Warn("reward collection skipped",
			"receiver", receiver,
			"owed", owed.String(),
		)
		return new(big.Int)
	}

	emission.LastPull = now
	return owed
}

// CollectTo releases the rewards accrued for receiver, failing loudly
// when nothing can be paid. This is the explicit, caller-initiated
// harvest path.
func (d *Distributor) CollectTo(receiver ids.ShortID) (*big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	emission, ok := d.emissions[receiver]
	if !ok || emission.Rate.Sign() == 0 {
		return nil, ErrNoEmission
	}

	now := d.clock.Time()
	owed := d.owed(emission, now)
	if owed.Sign() == 0 {
		return nil, ErrNoTimeElapsed
	}
	if err := d.ledger.Transfer(d.addr, receiver, owed); err != nil {
		return nil, ErrUnderfunded
	}

	emission.LastPull = now
	d.log.Info("rewards collected",
		"receiver", receiver,
		"amount", owed.String(),
	)
	return owed, nil
}

// Snapshot returns a copy of all emission configurations, for
// persistence.
func (d *Distributor) Snapshot() map[ids.ShortID]Emission {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[ids.ShortID]Emission, len(d.emissions))
	for receiver, emission := range d.emissions {
		out[receiver] = Emission{
			Rate:     new(big.Int).Set(emission.Rate),
			LastPull: emission.LastPull,
		}
	}
	return out
}

// Restore replaces all emission configurations with the snapshot's.
func (d *Distributor) Restore(emissions map[ids.ShortID]Emission) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.emissions = make(map[ids.ShortID]*Emission, len(emissions))
	for receiver, emission := range emissions {
		d.emissions[receiver] = &Emission{
			Rate:     new(big.Int).Set(emission.Rate),
			LastPull: emission.LastPull,
		}
	}
}

// owed computes rate * whole seconds elapsed since the last pull.
func (d *Distributor) owed(emission *Emission, now time.Time) *big.Int {
	elapsed := now.Unix() - emission.LastPull.Unix()
	if elapsed <= 0 || emission.Rate.Sign() == 0 {
		return new(big.Int)
	}
	return new(big.Int).Mul(emission.Rate, big.NewInt(elapsed))
}
