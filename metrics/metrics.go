// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics exposes operation counters for the staking vault.
package metrics

import (
	"errors"

	"github.com/luxfi/metric"
)

// Metrics counts staking operations. A nil *Metrics is valid and the
// counter methods are no-ops on it, so wiring metrics stays optional.
type Metrics struct {
	numStakesOpened  metric.Counter
	numStakesClosed  metric.Counter
	numYieldClaims   metric.Counter
	numCollects      metric.Counter
	numEmptyCollects metric.Counter

	metric.APIInterceptor
}

// New creates Metrics registered on registerer.
func New(registerer metric.Registerer) (*Metrics, error) {
	registry, ok := registerer.(metric.Registry)
	if !ok {
		return nil, errors.New("registerer must implement metric.Registry")
	}

	m := &Metrics{
		numStakesOpened: metric.NewCounter(metric.CounterOpts{
			Name: "stakes_opened",
			Help: "Number of stakes opened",
		}),
		numStakesClosed: metric.NewCounter(metric.CounterOpts{
			Name: "stakes_closed",
			Help: "Number of stakes fully closed",
		}),
		numYieldClaims: metric.NewCounter(metric.CounterOpts{
			Name: "yield_claims",
			Help: "Number of yield claims paid out",
		}),
		numCollects: metric.NewCounter(metric.CounterOpts{
			Name: "reward_collects",
			Help: "Number of background reward collections that moved funds",
		}),
		numEmptyCollects: metric.NewCounter(metric.CounterOpts{
			Name: "reward_collects_empty",
			Help: "Number of background reward collections that moved nothing",
		}),
	}
	// Counters self-register when created with NewCounter.

	interceptor, err := metric.NewAPIInterceptor(registry)
	m.APIInterceptor = interceptor
	return m, err
}

func (m *Metrics) IncStakesOpened() {
	if m != nil {
		m.numStakesOpened.Inc()
	}
}

func (m *Metrics) IncStakesClosed() {
	if m != nil {
		m.numStakesClosed.Inc()
	}
}

func (m *Metrics) IncYieldClaims() {
	if m != nil {
		m.numYieldClaims.Inc()
	}
}

// MarkCollect records the outcome of a background reward collection.
func (m *Metrics) MarkCollect(moved bool) {
	if m == nil {
		return
	}
	if moved {
		m.numCollects.Inc()
	} else {
		m.numEmptyCollects.Inc()
	}
}
