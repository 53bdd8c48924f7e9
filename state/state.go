// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state persists staking snapshots across restarts.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"

	"github.com/luxfi/stakevault/rewards"
	"github.com/luxfi/stakevault/staking"
)

var (
	ErrNoSnapshot     = errors.New("no snapshot stored")
	ErrStateCorrupted = errors.New("state corrupted")

	// Database prefixes
	prefixStake    = []byte("stake:")
	prefixShares   = []byte("shares:")
	prefixTarget   = []byte("target:")
	prefixEmission = []byte("emission:")
	keyNextID      = []byte("nextStakeID")
)

// Store reads and writes staking snapshots on a key-value database.
// Each stake, share balance, and delegation target lives under its own
// prefixed key so partial reads stay cheap; a save replaces the whole
// stored snapshot atomically in one batch.
type Store struct {
	db database.Database
}

// New creates a Store on db.
func New(db database.Database) *Store {
	return &Store{db: db}
}

// Save replaces the stored snapshot with snap.
func (s *Store) Save(snap *staking.Snapshot) error {
	batch := s.db.NewBatch()

	// Drop records from the previous snapshot first; the batch applies
	// deletes and puts together on write.
	for _, prefix := range [][]byte{prefixStake, prefixShares, prefixTarget} {
		stale, err := s.keysWithPrefix(prefix)
		if err != nil {
			return err
		}
		for _, key := range stale {
			if err := batch.Delete(key); err != nil {
				return err
			}
		}
	}

	for _, stake := range snap.Stakes {
		key := append(prefixStake, packUint64(stake.ID)...)
		if err := batch.Put(key, encodeStake(stake)); err != nil {
			return err
		}
	}
	for owner, balance := range snap.Shares {
		key := append(prefixShares, owner[:]...)
		if err := batch.Put(key, balance.Bytes()); err != nil {
			return err
		}
	}
	for id, target := range snap.Targets {
		key := append(prefixTarget, packUint64(id)...)
		if err := batch.Put(key, target[:]); err != nil {
			return err
		}
	}
	if err := batch.Put(keyNextID, packUint64(snap.NextStakeID)); err != nil {
		return err
	}
	return batch.Write()
}

// Load reads the stored snapshot. Returns ErrNoSnapshot when nothing
// has been saved yet.
func (s *Store) Load() (*staking.Snapshot, error) {
	nextIDBytes, err := s.db.Get(keyNextID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, ErrNoSnapshot
	case err != nil:
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if len(nextIDBytes) != 8 {
		return nil, ErrStateCorrupted
	}

	snap := &staking.Snapshot{
		NextStakeID: binary.BigEndian.Uint64(nextIDBytes),
		Shares:      make(map[ids.ShortID]*big.Int),
		Targets:     make(map[uint64]ids.ShortID),
	}

	iter := s.db.NewIteratorWithPrefix(prefixStake)
	for iter.Next() {
		stake, err := decodeStake(iter.Value())
		if err != nil {
			iter.Release()
			return nil, err
		}
		snap.Stakes = append(snap.Stakes, stake)
	}
	if err := iter.Error(); err != nil {
		iter.Release()
		return nil, err
	}
	iter.Release()

	iter = s.db.NewIteratorWithPrefix(prefixShares)
	for iter.Next() {
		key := iter.Key()
		if len(key) != len(prefixShares)+20 {
			iter.Release()
			return nil, ErrStateCorrupted
		}
		var owner ids.ShortID
		copy(owner[:], key[len(prefixShares):])
		snap.Shares[owner] = new(big.Int).SetBytes(iter.Value())
	}
	if err := iter.Error(); err != nil {
		iter.Release()
		return nil, err
	}
	iter.Release()

	iter = s.db.NewIteratorWithPrefix(prefixTarget)
	defer iter.Release()
	for iter.Next() {
		key := iter.Key()
		if len(key) != len(prefixTarget)+8 || len(iter.Value()) != 20 {
			return nil, ErrStateCorrupted
		}
		id := binary.BigEndian.Uint64(key[len(prefixTarget):])
		var target ids.ShortID
		copy(target[:], iter.Value())
		snap.Targets[id] = target
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return snap, nil
}

// SaveEmissions replaces the stored emission configurations.
func (s *Store) SaveEmissions(emissions map[ids.ShortID]rewards.Emission) error {
	batch := s.db.NewBatch()

	stale, err := s.keysWithPrefix(prefixEmission)
	if err != nil {
		return err
	}
	for _, key := range stale {
		if err := batch.Delete(key); err != nil {
			return err
		}
	}

	for receiver, emission := range emissions {
		key := append(prefixEmission, receiver[:]...)
		if err := batch.Put(key, encodeEmission(emission)); err != nil {
			return err
		}
	}
	return batch.Write()
}

// LoadEmissions reads the stored emission configurations. An empty map
// is returned when none are stored.
func (s *Store) LoadEmissions() (map[ids.ShortID]rewards.Emission, error) {
	emissions := make(map[ids.ShortID]rewards.Emission)

	iter := s.db.NewIteratorWithPrefix(prefixEmission)
	defer iter.Release()
	for iter.Next() {
		key := iter.Key()
		if len(key) != len(prefixEmission)+20 {
			return nil, ErrStateCorrupted
		}
		var receiver ids.ShortID
		copy(receiver[:], key[len(prefixEmission):])

		emission, err := decodeEmission(iter.Value())
		if err != nil {
			return nil, err
		}
		emissions[receiver] = emission
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return emissions, nil
}

func (s *Store) keysWithPrefix(prefix []byte) ([][]byte, error) {
	iter := s.db.NewIteratorWithPrefix(prefix)
	defer iter.Release()

	var keys [][]byte
	for iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		keys = append(keys, key)
	}
	return keys, iter.Error()
}

// Stake record format:
//
//	id (8) + owner (20) + createdAt unix nanos (8) +
//	lockPeriod nanos (8) + principal length (2) + principal bytes
func encodeStake(stake *staking.Stake) []byte {
	principal := stake.Principal.Bytes()
	data := make([]byte, 46+len(principal))

	binary.BigEndian.PutUint64(data[0:], stake.ID)
	copy(data[8:], stake.Owner[:])
	binary.BigEndian.PutUint64(data[28:], uint64(stake.CreatedAt.UnixNano()))
	binary.BigEndian.PutUint64(data[36:], uint64(stake.LockPeriod))
	binary.BigEndian.PutUint16(data[44:], uint16(len(principal)))
	copy(data[46:], principal)
	return data
}

func decodeStake(data []byte) (*staking.Stake, error) {
	if len(data) < 46 {
		return nil, ErrStateCorrupted
	}
	principalLen := int(binary.BigEndian.Uint16(data[44:]))
	if len(data) != 46+principalLen {
		return nil, ErrStateCorrupted
	}

	stake := &staking.Stake{
		ID:         binary.BigEndian.Uint64(data[0:]),
		CreatedAt:  time.Unix(0, int64(binary.BigEndian.Uint64(data[28:]))),
		LockPeriod: time.Duration(binary.BigEndian.Uint64(data[36:])),
		Principal:  new(big.Int).SetBytes(data[46:]),
	}
	copy(stake.Owner[:], data[8:28])
	return stake, nil
}

// Emission record format:
//
//	lastPull unix nanos (8) + rate bytes
func encodeEmission(emission rewards.Emission) []byte {
	rate := emission.Rate.Bytes()
	data := make([]byte, 8+len(rate))
	binary.BigEndian.PutUint64(data[0:], uint64(emission.LastPull.UnixNano()))
	copy(data[8:], rate)
	return data
}

func decodeEmission(data []byte) (rewards.Emission, error) {
	if len(data) < 8 {
		return rewards.Emission{}, ErrStateCorrupted
	}
	return rewards.Emission{
		Rate:     new(big.Int).SetBytes(data[8:]),
		LastPull: time.Unix(0, int64(binary.BigEndian.Uint64(data[0:]))),
	}, nil
}

func packUint64(v uint64) []byte {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, v)
	return data
}
