// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api provides the JSON-RPC surface for the staking vault.
package api

import (
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/luxfi/ids"

	"github.com/luxfi/stakevault/config"
	"github.com/luxfi/stakevault/registry"
	"github.com/luxfi/stakevault/rewards"
	"github.com/luxfi/stakevault/staking"
	"github.com/luxfi/stakevault/state"
	"github.com/luxfi/stakevault/utils/json"
)

var (
	ErrInvalidAmount  = errors.New("amount is not a valid decimal integer")
	ErrNoStore        = errors.New("no snapshot store configured")
	ErrNoSuchEmission = errors.New("no emission configured for receiver")
)

// Service provides the RPC API for the staking vault. All state flows
// through the wrapped manager, so RPC callers and in-process callers
// observe the same serialization.
type Service struct {
	mgr   *staking.DelegatedManager
	dist  *rewards.Distributor
	cfg   *config.Config
	reg   *registry.Set
	store *state.Store
}

// NewService creates the API service. store may be nil when snapshot
// persistence is not wired.
func NewService(
	mgr *staking.DelegatedManager,
	dist *rewards.Distributor,
	cfg *config.Config,
	reg *registry.Set,
	store *state.Store,
) *Service {
	return &Service{
		mgr:   mgr,
		dist:  dist,
		cfg:   cfg,
		reg:   reg,
		store: store,
	}
}

// PingArgs is the argument for the Ping API.
type PingArgs struct{}

// PingReply is the reply for the Ping API.
type PingReply struct {
	Success bool `json:"success"`
}

// Ping returns a simple health check response.
func (s *Service) Ping(_ *http.Request, _ *PingArgs, reply *PingReply) error {
	reply.Success = true
	return nil
}

// OpenStakeArgs is the argument for the OpenStake API. Target is
// optional; when set, the stake is delegated to it.
type OpenStakeArgs struct {
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
	Target string `json:"target,omitempty"`
}

// OpenStakeReply is the reply for the OpenStake API.
type OpenStakeReply struct {
	StakeID  json.Uint64 `json:"stakeId"`
	UnlockAt string      `json:"unlockAt"`
}

// OpenStake locks assets into a new stake.
func (s *Service) OpenStake(_ *http.Request, args *OpenStakeArgs, reply *OpenStakeReply) error {
	owner, err := ids.ShortFromString(args.Owner)
	if err != nil {
		return err
	}
	amount, err := parseAmount(args.Amount)
	if err != nil {
		return err
	}

	var id uint64
	if args.Target != "" {
		target, err := ids.ShortFromString(args.Target)
		if err != nil {
			return err
		}
		id, err = s.mgr.Open(owner, amount, target)
		if err != nil {
			return err
		}
	} else {
		id, err = s.mgr.Manager.Open(owner, amount)
		if err != nil {
			return err
		}
	}

	stake, err := s.mgr.Stake(id)
	if err != nil {
		return err
	}
	reply.StakeID = json.Uint64(id)
	reply.UnlockAt = stake.UnlockAt(s.cfg.LockPeriod()).Format(time.RFC3339)
	return nil
}

// CloseStakeArgs is the argument for the CloseStake API. A zero or
// empty amount closes the full remaining principal.
type CloseStakeArgs struct {
	Caller  string      `json:"caller"`
	StakeID json.Uint64 `json:"stakeId"`
	Amount  string      `json:"amount,omitempty"`
}

// CloseStakeReply is the reply for the CloseStake API.
type CloseStakeReply struct {
	Paid string `json:"paid"`
}

// CloseStake pays out part or all of a stake's principal.
func (s *Service) CloseStake(_ *http.Request, args *CloseStakeArgs, reply *CloseStakeReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return err
	}
	amount, err := parseOptionalAmount(args.Amount)
	if err != nil {
		return err
	}

	paid, err := s.mgr.Close(caller, uint64(args.StakeID), amount)
	if err != nil {
		return err
	}
	reply.Paid = paid.String()
	return nil
}

// ClaimYieldArgs is the argument for the ClaimYield API. A zero or
// empty amount claims everything withdrawable.
type ClaimYieldArgs struct {
	Owner  string `json:"owner"`
	Amount string `json:"amount,omitempty"`
}

// ClaimYieldReply is the reply for the ClaimYield API.
type ClaimYieldReply struct {
	Claimed string `json:"claimed"`
}

// ClaimYield pays out compounded yield above the locked principal.
func (s *Service) ClaimYield(_ *http.Request, args *ClaimYieldArgs, reply *ClaimYieldReply) error {
	owner, err := ids.ShortFromString(args.Owner)
	if err != nil {
		return err
	}
	amount, err := parseOptionalAmount(args.Amount)
	if err != nil {
		return err
	}

	claimed, err := s.mgr.ClaimYield(owner, amount)
	if err != nil {
		return err
	}
	reply.Claimed = claimed.String()
	return nil
}

// GetStakeArgs is the argument for the GetStake API.
type GetStakeArgs struct {
	StakeID json.Uint64 `json:"stakeId"`
}

// GetStakeReply is the reply for the GetStake API.
type GetStakeReply struct {
	Owner      string      `json:"owner"`
	Principal  string      `json:"principal"`
	CreatedAt  string      `json:"createdAt"`
	UnlockAt   string      `json:"unlockAt"`
	LockPeriod json.Uint64 `json:"lockPeriodSeconds"`
	Target     string      `json:"target,omitempty"`
}

// GetStake returns a stake's current record.
func (s *Service) GetStake(_ *http.Request, args *GetStakeArgs, reply *GetStakeReply) error {
	stake, err := s.mgr.Stake(uint64(args.StakeID))
	if err != nil {
		return err
	}

	reply.Owner = stake.Owner.String()
	reply.Principal = stake.Principal.String()
	reply.CreatedAt = stake.CreatedAt.Format(time.RFC3339)
	reply.UnlockAt = stake.UnlockAt(s.cfg.LockPeriod()).Format(time.RFC3339)
	reply.LockPeriod = json.Uint64(stake.LockPeriod / time.Second)
	if target, ok := s.mgr.Target(stake.ID); ok {
		reply.Target = target.String()
	}
	return nil
}

// GetAccountArgs is the argument for the GetAccount API.
type GetAccountArgs struct {
	Owner string `json:"owner"`
}

// GetAccountReply is the reply for the GetAccount API.
type GetAccountReply struct {
	StakeIDs     []json.Uint64 `json:"stakeIds"`
	LockedTotal  string        `json:"lockedTotal"`
	Shares       string        `json:"shares"`
	AssetValue   string        `json:"assetValue"`
	Withdrawable string        `json:"withdrawable"`
	Admitted     bool          `json:"admitted"`
}

// GetAccount returns an owner's aggregate staking position.
func (s *Service) GetAccount(_ *http.Request, args *GetAccountArgs, reply *GetAccountReply) error {
	owner, err := ids.ShortFromString(args.Owner)
	if err != nil {
		return err
	}

	for _, id := range s.mgr.StakeIDs(owner) {
		reply.StakeIDs = append(reply.StakeIDs, json.Uint64(id))
	}
	reply.LockedTotal = s.mgr.LockedTotal(owner).String()
	reply.Shares = s.mgr.SharesOf(owner).String()
	reply.AssetValue = s.mgr.AssetValueOf(owner).String()
	reply.Withdrawable = s.mgr.Withdrawable(owner).String()
	reply.Admitted = s.reg.IsAdmitted(owner)
	return nil
}

// GetVaultArgs is the argument for the GetVault API.
type GetVaultArgs struct{}

// GetVaultReply is the reply for the GetVault API.
type GetVaultReply struct {
	TotalShares string `json:"totalShares"`
	TotalAssets string `json:"totalAssets"`
}

// GetVault returns the vault totals.
func (s *Service) GetVault(_ *http.Request, _ *GetVaultArgs, reply *GetVaultReply) error {
	reply.TotalShares = s.mgr.TotalShares().String()
	reply.TotalAssets = s.mgr.TotalAssets().String()
	return nil
}

// GetDelegatedArgs is the argument for the GetDelegated API.
type GetDelegatedArgs struct {
	Target string `json:"target"`
}

// GetDelegatedReply is the reply for the GetDelegated API.
type GetDelegatedReply struct {
	Amount string `json:"amount"`
}

// GetDelegated returns the aggregate principal delegated to a target.
func (s *Service) GetDelegated(_ *http.Request, args *GetDelegatedArgs, reply *GetDelegatedReply) error {
	target, err := ids.ShortFromString(args.Target)
	if err != nil {
		return err
	}
	reply.Amount = s.mgr.DelegatedTo(target).String()
	return nil
}

// CollectArgs is the argument for the Collect API.
type CollectArgs struct {
	Receiver string `json:"receiver"`
}

// CollectReply is the reply for the Collect API.
type CollectReply struct {
	Amount string `json:"amount"`
}

// Collect is the explicit harvest: it releases the receiver's accrued
// rewards and fails loudly when nothing can be paid.
func (s *Service) Collect(_ *http.Request, args *CollectArgs, reply *CollectReply) error {
	receiver, err := ids.ShortFromString(args.Receiver)
	if err != nil {
		return err
	}
	amount, err := s.dist.CollectTo(receiver)
	if err != nil {
		return err
	}
	reply.Amount = amount.String()
	return nil
}

// GetEmissionArgs is the argument for the GetEmission API.
type GetEmissionArgs struct {
	Receiver string `json:"receiver"`
}

// GetEmissionReply is the reply for the GetEmission API.
type GetEmissionReply struct {
	Rate     string `json:"rate"`
	LastPull string `json:"lastPull"`
}

// GetEmission returns the receiver's emission configuration.
func (s *Service) GetEmission(_ *http.Request, args *GetEmissionArgs, reply *GetEmissionReply) error {
	receiver, err := ids.ShortFromString(args.Receiver)
	if err != nil {
		return err
	}
	emission, ok := s.dist.Emission(receiver)
	if !ok {
		return ErrNoSuchEmission
	}
	reply.Rate = emission.Rate.String()
	reply.LastPull = emission.LastPull.Format(time.RFC3339)
	return nil
}

// SetEmissionRateArgs is the argument for the SetEmissionRate API.
type SetEmissionRateArgs struct {
	Caller   string `json:"caller"`
	Receiver string `json:"receiver"`
	Rate     string `json:"rate"`
}

// SetEmissionRateReply is the reply for the SetEmissionRate API.
type SetEmissionRateReply struct {
	Success bool `json:"success"`
}

// SetEmissionRate configures a per-second emission toward a receiver.
// Administrator only.
func (s *Service) SetEmissionRate(_ *http.Request, args *SetEmissionRateArgs, reply *SetEmissionRateReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return err
	}
	receiver, err := ids.ShortFromString(args.Receiver)
	if err != nil {
		return err
	}
	rate, ok := new(big.Int).SetString(args.Rate, 10)
	if !ok {
		return ErrInvalidAmount
	}
	if err := s.dist.SetRate(caller, receiver, rate); err != nil {
		return err
	}
	reply.Success = true
	return nil
}

// SetLockPeriodArgs is the argument for the SetLockPeriod API.
type SetLockPeriodArgs struct {
	Caller  string      `json:"caller"`
	Seconds json.Uint64 `json:"seconds"`
}

// SetLockPeriodReply is the reply for the SetLockPeriod API.
type SetLockPeriodReply struct {
	Success bool `json:"success"`
}

// SetLockPeriod changes the global lock period. Administrator only;
// stakes already open keep the shorter of the old and new periods.
func (s *Service) SetLockPeriod(_ *http.Request, args *SetLockPeriodArgs, reply *SetLockPeriodReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return err
	}
	if err := s.cfg.SetLockPeriod(caller, time.Duration(args.Seconds)*time.Second); err != nil {
		return err
	}
	reply.Success = true
	return nil
}

// SetMinimumStakeArgs is the argument for the SetMinimumStake API.
type SetMinimumStakeArgs struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

// SetMinimumStakeReply is the reply for the SetMinimumStake API.
type SetMinimumStakeReply struct {
	Success bool `json:"success"`
}

// SetMinimumStake changes the minimum opening stake. Administrator
// only.
func (s *Service) SetMinimumStake(_ *http.Request, args *SetMinimumStakeArgs, reply *SetMinimumStakeReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return err
	}
	amount, err := parseAmount(args.Amount)
	if err != nil {
		return err
	}
	if err := s.cfg.SetMinimumStake(caller, amount); err != nil {
		return err
	}
	reply.Success = true
	return nil
}

// AdmitArgs is the argument for the Admit and Revoke APIs.
type AdmitArgs struct {
	Caller      string `json:"caller"`
	Participant string `json:"participant"`
}

// AdmitReply is the reply for the Admit and Revoke APIs.
type AdmitReply struct {
	Success bool `json:"success"`
}

// Admit adds a participant to the admission set. Administrator only.
func (s *Service) Admit(_ *http.Request, args *AdmitArgs, reply *AdmitReply) error {
	caller, participant, err := parseAdmitArgs(args)
	if err != nil {
		return err
	}
	if err := s.reg.Admit(caller, participant); err != nil {
		return err
	}
	reply.Success = true
	return nil
}

// Revoke removes a participant from the admission set. Administrator
// only. Existing stakes survive; their lock and ownership
// restrictions are waived so the owner can always exit.
func (s *Service) Revoke(_ *http.Request, args *AdmitArgs, reply *AdmitReply) error {
	caller, participant, err := parseAdmitArgs(args)
	if err != nil {
		return err
	}
	if err := s.reg.Revoke(caller, participant); err != nil {
		return err
	}
	reply.Success = true
	return nil
}

// CheckpointArgs is the argument for the Checkpoint API.
type CheckpointArgs struct{}

// CheckpointReply is the reply for the Checkpoint API.
type CheckpointReply struct {
	Stakes json.Uint64 `json:"stakes"`
}

// Checkpoint persists the current staking snapshot.
func (s *Service) Checkpoint(_ *http.Request, _ *CheckpointArgs, reply *CheckpointReply) error {
	if s.store == nil {
		return ErrNoStore
	}
	snap := s.mgr.Snapshot()
	if err := s.store.Save(snap); err != nil {
		return err
	}
	if err := s.store.SaveEmissions(s.dist.Snapshot()); err != nil {
		return err
	}
	reply.Stakes = json.Uint64(len(snap.Stakes))
	return nil
}

func parseAdmitArgs(args *AdmitArgs) (caller, participant ids.ShortID, err error) {
	caller, err = ids.ShortFromString(args.Caller)
	if err != nil {
		return ids.ShortID{}, ids.ShortID{}, err
	}
	participant, err = ids.ShortFromString(args.Participant)
	if err != nil {
		return ids.ShortID{}, ids.ShortID{}, err
	}
	return caller, participant, nil
}

func parseAmount(value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, ErrInvalidAmount
	}
	return amount, nil
}

func parseOptionalAmount(value string) (*big.Int, error) {
	if value == "" {
		return nil, nil
	}
	return parseAmount(value)
}
