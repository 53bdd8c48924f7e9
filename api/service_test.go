// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/stakevault/config"
	"github.com/luxfi/stakevault/registry"
	"github.com/luxfi/stakevault/rewards"
	"github.com/luxfi/stakevault/staking"
	"github.com/luxfi/stakevault/state"
	"github.com/luxfi/stakevault/token"
	"github.com/luxfi/stakevault/utils/timer/mockable"
)

type serviceEnv struct {
	admin   ids.ShortID
	owner   ids.ShortID
	ledger  *token.SimpleLedger
	clock   *mockable.Clock
	store   *state.Store
	service *Service
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()
	require := require.New(t)

	admin := ids.GenerateTestShortID()
	owner := ids.GenerateTestShortID()
	cfg := config.New(admin, 100*time.Second, big.NewInt(100))
	ledger := token.NewSimpleLedger()
	reg := registry.NewSet(admin)
	clock := &mockable.Clock{}
	clock.Set(time.Unix(0, 0))

	require.NoError(ledger.Mint(owner, big.NewInt(1000)))
	require.NoError(reg.Admit(admin, owner))

	dist := rewards.NewDistributor(cfg, ledger, ids.GenerateTestShortID(), clock, log.NewNoOpLogger())
	vault := staking.NewVault(ledger, ids.GenerateTestShortID())
	mgr := staking.NewDelegatedManager(staking.NewManager(
		cfg, vault, dist, reg, clock, log.NewNoOpLogger(), nil,
	))
	store := state.New(memdb.New())

	return &serviceEnv{
		admin:   admin,
		owner:   owner,
		ledger:  ledger,
		clock:   clock,
		store:   store,
		service: NewService(mgr, dist, cfg, reg, store),
	}
}

func TestServicePing(t *testing.T) {
	env := newServiceEnv(t)
	reply := PingReply{}
	require.NoError(t, env.service.Ping(nil, &PingArgs{}, &reply))
	require.True(t, reply.Success)
}

func TestServiceStakeLifecycle(t *testing.T) {
	require := require.New(t)
	env := newServiceEnv(t)

	openReply := OpenStakeReply{}
	require.NoError(env.service.OpenStake(nil, &OpenStakeArgs{
		Owner:  env.owner.String(),
		Amount: "500",
	}, &openReply))
	require.Equal(uint64(1), uint64(openReply.StakeID))

	stakeReply := GetStakeReply{}
	require.NoError(env.service.GetStake(nil, &GetStakeArgs{
		StakeID: openReply.StakeID,
	}, &stakeReply))
	require.Equal(env.owner.String(), stakeReply.Owner)
	require.Equal("500", stakeReply.Principal)
	require.Equal(uint64(100), uint64(stakeReply.LockPeriod))
	require.Empty(stakeReply.Target)

	accountReply := GetAccountReply{}
	require.NoError(env.service.GetAccount(nil, &GetAccountArgs{
		Owner: env.owner.String(),
	}, &accountReply))
	require.Len(accountReply.StakeIDs, 1)
	require.Equal("500", accountReply.LockedTotal)
	require.True(accountReply.Admitted)

	// Close before unlock surfaces the staking error unchanged.
	closeReply := CloseStakeReply{}
	err := env.service.CloseStake(nil, &CloseStakeArgs{
		Caller:  env.owner.String(),
		StakeID: openReply.StakeID,
	}, &closeReply)
	require.ErrorIs(err, staking.ErrStakeLocked)

	env.clock.Advance(100 * time.Second)
	require.NoError(env.service.CloseStake(nil, &CloseStakeArgs{
		Caller:  env.owner.String(),
		StakeID: openReply.StakeID,
	}, &closeReply))
	require.Equal("500", closeReply.Paid)
}

func TestServiceDelegatedOpen(t *testing.T) {
	require := require.New(t)
	env := newServiceEnv(t)

	target := ids.GenerateTestShortID()
	admitReply := AdmitReply{}
	require.NoError(env.service.Admit(nil, &AdmitArgs{
		Caller:      env.admin.String(),
		Participant: target.String(),
	}, &admitReply))

	openReply := OpenStakeReply{}
	require.NoError(env.service.OpenStake(nil, &OpenStakeArgs{
		Owner:  env.owner.String(),
		Amount: "500",
		Target: target.String(),
	}, &openReply))

	stakeReply := GetStakeReply{}
	require.NoError(env.service.GetStake(nil, &GetStakeArgs{
		StakeID: openReply.StakeID,
	}, &stakeReply))
	require.Equal(target.String(), stakeReply.Target)

	delegatedReply := GetDelegatedReply{}
	require.NoError(env.service.GetDelegated(nil, &GetDelegatedArgs{
		Target: target.String(),
	}, &delegatedReply))
	require.Equal("500", delegatedReply.Amount)
}

func TestServiceEmission(t *testing.T) {
	require := require.New(t)
	env := newServiceEnv(t)

	receiver := ids.GenerateTestShortID()
	rateReply := SetEmissionRateReply{}

	// Only the administrator may configure rates.
	err := env.service.SetEmissionRate(nil, &SetEmissionRateArgs{
		Caller:   env.owner.String(),
		Receiver: receiver.String(),
		Rate:     "2",
	}, &rateReply)
	require.ErrorIs(err, rewards.ErrNotAuthorized)

	require.NoError(env.service.SetEmissionRate(nil, &SetEmissionRateArgs{
		Caller:   env.admin.String(),
		Receiver: receiver.String(),
		Rate:     "2",
	}, &rateReply))

	_, err = env.service.dist.CollectTo(receiver)
	require.ErrorIs(err, rewards.ErrNoTimeElapsed)

	require.NoError(env.ledger.Mint(env.service.dist.Address(), big.NewInt(1000)))
	env.clock.Advance(50 * time.Second)

	collectReply := CollectReply{}
	require.NoError(env.service.Collect(nil, &CollectArgs{
		Receiver: receiver.String(),
	}, &collectReply))
	require.Equal("100", collectReply.Amount)

	emissionReply := GetEmissionReply{}
	require.NoError(env.service.GetEmission(nil, &GetEmissionArgs{
		Receiver: receiver.String(),
	}, &emissionReply))
	require.Equal("2", emissionReply.Rate)
}

func TestServiceAdminConfig(t *testing.T) {
	require := require.New(t)
	env := newServiceEnv(t)

	lockReply := SetLockPeriodReply{}
	require.NoError(env.service.SetLockPeriod(nil, &SetLockPeriodArgs{
		Caller:  env.admin.String(),
		Seconds: 10,
	}, &lockReply))

	minReply := SetMinimumStakeReply{}
	err := env.service.SetMinimumStake(nil, &SetMinimumStakeArgs{
		Caller: env.owner.String(),
		Amount: "5",
	}, &minReply)
	require.ErrorIs(err, config.ErrNotAuthorized)

	require.NoError(env.service.SetMinimumStake(nil, &SetMinimumStakeArgs{
		Caller: env.admin.String(),
		Amount: "5",
	}, &minReply))

	openReply := OpenStakeReply{}
	require.NoError(env.service.OpenStake(nil, &OpenStakeArgs{
		Owner:  env.owner.String(),
		Amount: "5",
	}, &openReply))
}

func TestServiceCheckpoint(t *testing.T) {
	require := require.New(t)
	env := newServiceEnv(t)

	openReply := OpenStakeReply{}
	require.NoError(env.service.OpenStake(nil, &OpenStakeArgs{
		Owner:  env.owner.String(),
		Amount: "500",
	}, &openReply))

	checkpointReply := CheckpointReply{}
	require.NoError(env.service.Checkpoint(nil, &CheckpointArgs{}, &checkpointReply))
	require.Equal(uint64(1), uint64(checkpointReply.Stakes))

	snap, err := env.store.Load()
	require.NoError(err)
	require.Len(snap.Stakes, 1)
	require.Equal(int64(500), snap.Stakes[0].Principal.Int64())
}

func TestServiceInvalidInputs(t *testing.T) {
	require := require.New(t)
	env := newServiceEnv(t)

	openReply := OpenStakeReply{}
	err := env.service.OpenStake(nil, &OpenStakeArgs{
		Owner:  "not an address",
		Amount: "500",
	}, &openReply)
	require.Error(err)

	err = env.service.OpenStake(nil, &OpenStakeArgs{
		Owner:  env.owner.String(),
		Amount: "12.5",
	}, &openReply)
	require.ErrorIs(err, ErrInvalidAmount)
}
