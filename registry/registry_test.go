// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
)

func TestAdmitRevoke(t *testing.T) {
	require := require.New(t)

	admin := ids.GenerateTestShortID()
	participant := ids.GenerateTestShortID()
	set := NewSet(admin)

	require.False(set.IsAdmitted(participant))

	require.NoError(set.Admit(admin, participant))
	require.True(set.IsAdmitted(participant))

	require.NoError(set.Revoke(admin, participant))
	require.False(set.IsAdmitted(participant))
}

func TestAdmitRequiresAdmin(t *testing.T) {
	require := require.New(t)

	admin := ids.GenerateTestShortID()
	intruder := ids.GenerateTestShortID()
	participant := ids.GenerateTestShortID()
	set := NewSet(admin)

	require.ErrorIs(set.Admit(intruder, participant), ErrNotAuthorized)
	require.False(set.IsAdmitted(participant))

	require.NoError(set.Admit(admin, participant))
	require.ErrorIs(set.Revoke(intruder, participant), ErrNotAuthorized)
	require.True(set.IsAdmitted(participant))
}
