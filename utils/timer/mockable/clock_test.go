// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mockable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockSet(t *testing.T) {
	require := require.New(t)

	clock := Clock{}
	pinned := time.Unix(1_000_000, 0)
	clock.Set(pinned)

	require.Equal(pinned, clock.Time())
	require.Equal(uint64(1_000_000), clock.Unix())
}

func TestClockAdvance(t *testing.T) {
	require := require.New(t)

	clock := Clock{}
	clock.Set(time.Unix(1000, 0))
	clock.Advance(90 * time.Second)

	require.Equal(uint64(1090), clock.Unix())
}

func TestClockSync(t *testing.T) {
	require := require.New(t)

	clock := Clock{}
	clock.Set(time.Unix(0, 0))
	clock.Sync()

	require.WithinDuration(time.Now(), clock.Time(), time.Minute)
}
