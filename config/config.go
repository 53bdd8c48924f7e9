// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines the mutable staking configuration. The record
// is passed by reference into every component that reads it and is
// mutated only through the admin-gated setters.
package config

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/luxfi/ids"

	"github.com/luxfi/stakevault/utils/units"
)

var (
	ErrNotAuthorized = errors.New("caller lacks the administrator capability")
	ErrInvalidValue  = errors.New("invalid configuration value")
)

// Config carries the staking parameters an administrator may retune at
// runtime. Every read is a snapshot under the config lock; a stake
// captures its own lock period at open time and is never affected by a
// later increase of the global one.
type Config struct {
	mu sync.RWMutex

	admin        ids.ShortID
	lockPeriod   time.Duration
	minimumStake *big.Int
}

// Default parameters.
const DefaultLockPeriod = 182 * 24 * time.Hour

// DefaultMinimumStake returns the default first-stake floor.
func DefaultMinimumStake() *big.Int {
	return new(big.Int).SetUint64(units.KiloLux)
}

// New creates a Config administered by admin.
func New(admin ids.ShortID, lockPeriod time.Duration, minimumStake *big.Int) *Config {
	return &Config{
		admin:        admin,
		lockPeriod:   lockPeriod,
		minimumStake: new(big.Int).Set(minimumStake),
	}
}

// Default returns a Config with default parameters.
func Default(admin ids.ShortID) *Config {
	return New(admin, DefaultLockPeriod, DefaultMinimumStake())
}

// Admin returns the administrator address.
func (c *Config) Admin() ids.ShortID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.admin
}

// LockPeriod returns the current global lock period.
func (c *Config) LockPeriod() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lockPeriod
}

// MinimumStake returns the floor applied to an owner's first stake.
func (c *Config) MinimumStake() *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return new(big.Int).Set(c.minimumStake)
}

// SetLockPeriod changes the global lock period. Already-open stakes are
// bound by min(new period, their captured period), so shortening the
// period can only move unlock times earlier.
func (c *Config) SetLockPeriod(caller ids.ShortID, period time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.admin {
		return ErrNotAuthorized
	}
	if period < 0 {
		return ErrInvalidValue
	}
	c.lockPeriod = period
	return nil
}

// SetMinimumStake changes the first-stake floor.
func (c *Config) SetMinimumStake(caller ids.ShortID, minimum *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.admin {
		return ErrNotAuthorized
	}
	if minimum == nil || minimum.Sign() < 0 {
		return ErrInvalidValue
	}
	c.minimumStake = new(big.Int).Set(minimum)
	return nil
}
