// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package staking implements a share-accounted vault that locks a
// fungible asset for a bounded period in exchange for continuously
// accruing rewards. Rewards pulled into the vault compound into every
// depositor's redeemable balance; the compounded excess over locked
// principal can be claimed without unlocking.
package staking

import (
	"math/big"
	"time"

	"github.com/luxfi/ids"
)

// Stake is one owner's locked principal. The lock period is captured
// at creation and never re-derived, so a later increase of the global
// lock period can never extend a stake already open.
type Stake struct {
	ID         uint64        `json:"id"`
	Owner      ids.ShortID   `json:"owner"`
	Principal  *big.Int      `json:"principal"`
	CreatedAt  time.Time     `json:"createdAt"`
	LockPeriod time.Duration `json:"lockPeriod"`
}

// UnlockAt returns the earliest time the stake may close given the
// current global lock period. The effective lock is the smaller of the
// captured and the global period: shortening the global period moves
// unlock times earlier, lengthening it does not move them at all.
func (s *Stake) UnlockAt(globalLockPeriod time.Duration) time.Time {
	effective := min(globalLockPeriod, s.LockPeriod)
	return s.CreatedAt.Add(effective)
}

func (s *Stake) copy() *Stake {
	return &Stake{
		ID:         s.ID,
		Owner:      s.Owner,
		Principal:  new(big.Int).Set(s.Principal),
		CreatedAt:  s.CreatedAt,
		LockPeriod: s.LockPeriod,
	}
}
