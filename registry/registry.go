// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package registry tracks which participants are admitted to the
// staking system. Admission is mutated only from outside the staking
// core; the core treats the registry as a read-only collaborator.
package registry

import (
	"errors"
	"sync"

	"github.com/luxfi/ids"
)

var ErrNotAuthorized = errors.New("caller is not the registry admin")

// Registry answers admission queries for staking participants.
type Registry interface {
	IsAdmitted(participant ids.ShortID) bool
}

// Set is an in-memory Registry mutated through an admin-gated API.
type Set struct {
	mu       sync.RWMutex
	admin    ids.ShortID
	admitted map[ids.ShortID]struct{}
}

// NewSet creates an empty registry administered by admin.
func NewSet(admin ids.ShortID) *Set {
	return &Set{
		admin:    admin,
		admitted: make(map[ids.ShortID]struct{}),
	}
}

// Admit adds a participant. Only the admin may call.
func (s *Set) Admit(caller, participant ids.ShortID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.admin {
		return ErrNotAuthorized
	}
	s.admitted[participant] = struct{}{}
	return nil
}

// Revoke removes a participant. Revocation does not touch the
// participant's open stakes; the staking core relaxes its exit rules
// for revoked owners instead.
func (s *Set) Revoke(caller, participant ids.ShortID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.admin {
		return ErrNotAuthorized
	}
	delete(s.admitted, participant)
	return nil
}

func (s *Set) IsAdmitted(participant ids.ShortID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.admitted[participant]
	return ok
}
