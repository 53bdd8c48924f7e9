// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package staking

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/log"
)

func TestSnapshotRoundTrip(t *testing.T) {
	require := require.New(t)
	env := newManagerEnv(t)
	owner := env.newOwner(t, 1000)

	first, err := env.mgr.Open(owner, big.NewInt(600))
	require.NoError(err)
	_, err = env.mgr.Open(owner, big.NewInt(400))
	require.NoError(err)

	snap := env.mgr.Snapshot()

	restored := NewManager(
		env.cfg, env.vault, env.dist, env.reg, env.clock, log.NewNoOpLogger(), nil,
	)
	require.NoError(restored.Restore(snap))

	require.Equal(int64(1000), restored.LockedTotal(owner).Int64())
	require.Equal([]uint64{1, 2}, restored.StakeIDs(owner))
	require.Equal(int64(1000), restored.SharesOf(owner).Int64())

	stake, err := restored.Stake(first)
	require.NoError(err)
	require.Equal(int64(600), stake.Principal.Int64())
	require.Equal(100*time.Second, stake.LockPeriod)

	// The restored manager continues the id sequence.
	next, err := restored.Open(owner, big.NewInt(1))
	require.NoError(err)
	require.Equal(uint64(3), next)
}

func TestSnapshotIsACopy(t *testing.T) {
	require := require.New(t)
	env := newManagerEnv(t)
	owner := env.newOwner(t, 1000)

	id, err := env.mgr.Open(owner, big.NewInt(500))
	require.NoError(err)

	snap := env.mgr.Snapshot()
	snap.Stakes[0].Principal.SetInt64(7)
	snap.Shares[owner].SetInt64(7)

	stake, err := env.mgr.Stake(id)
	require.NoError(err)
	require.Equal(int64(500), stake.Principal.Int64())
	require.Equal(int64(500), env.mgr.SharesOf(owner).Int64())
}

func TestRestoreRejectsCorruptSnapshots(t *testing.T) {
	require := require.New(t)
	env := newManagerEnv(t)
	owner := env.newOwner(t, 1000)

	_, err := env.mgr.Open(owner, big.NewInt(500))
	require.NoError(err)

	// Stake id outside the issued range.
	snap := env.mgr.Snapshot()
	snap.Stakes[0].ID = snap.NextStakeID
	require.ErrorIs(env.mgr.Restore(snap), ErrCorruptSnapshot)

	// Non-positive principal.
	snap = env.mgr.Snapshot()
	snap.Stakes[0].Principal.SetInt64(0)
	require.ErrorIs(env.mgr.Restore(snap), ErrCorruptSnapshot)

	// Duplicate stake ids.
	snap = env.mgr.Snapshot()
	snap.Stakes = append(snap.Stakes, snap.Stakes[0].copy())
	snap.NextStakeID++
	require.ErrorIs(env.mgr.Restore(snap), ErrCorruptSnapshot)

	// Negative share balance.
	snap = env.mgr.Snapshot()
	snap.Shares[owner].SetInt64(-1)
	require.ErrorIs(env.mgr.Restore(snap), ErrCorruptSnapshot)

	// The failed restores left the live state untouched.
	require.Equal(int64(500), env.mgr.LockedTotal(owner).Int64())
}
