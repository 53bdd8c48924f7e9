// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
)

func TestMintAndBalance(t *testing.T) {
	require := require.New(t)

	ledger := NewSimpleLedger()
	holder := ids.GenerateTestShortID()

	require.Equal(0, ledger.BalanceOf(holder).Sign())

	require.NoError(ledger.Mint(holder, big.NewInt(1000)))
	require.Equal(int64(1000), ledger.BalanceOf(holder).Int64())

	require.NoError(ledger.Mint(holder, big.NewInt(500)))
	require.Equal(int64(1500), ledger.BalanceOf(holder).Int64())
}

func TestMintInvalidAmount(t *testing.T) {
	require := require.New(t)

	ledger := NewSimpleLedger()
	holder := ids.GenerateTestShortID()

	require.ErrorIs(ledger.Mint(holder, big.NewInt(0)), ErrInvalidAmount)
	require.ErrorIs(ledger.Mint(holder, big.NewInt(-1)), ErrInvalidAmount)
	require.ErrorIs(ledger.Mint(holder, nil), ErrInvalidAmount)
}

func TestTransfer(t *testing.T) {
	require := require.New(t)

	ledger := NewSimpleLedger()
	alice := ids.GenerateTestShortID()
	bob := ids.GenerateTestShortID()

	require.NoError(ledger.Mint(alice, big.NewInt(1000)))
	require.NoError(ledger.Transfer(alice, bob, big.NewInt(400)))

	require.Equal(int64(600), ledger.BalanceOf(alice).Int64())
	require.Equal(int64(400), ledger.BalanceOf(bob).Int64())
}

func TestTransferInsufficientBalance(t *testing.T) {
	require := require.New(t)

	ledger := NewSimpleLedger()
	alice := ids.GenerateTestShortID()
	bob := ids.GenerateTestShortID()

	require.NoError(ledger.Mint(alice, big.NewInt(100)))

	err := ledger.Transfer(alice, bob, big.NewInt(101))
	require.ErrorIs(err, ErrInsufficientBalance)

	// Failed transfer leaves balances untouched.
	require.Equal(int64(100), ledger.BalanceOf(alice).Int64())
	require.Equal(0, ledger.BalanceOf(bob).Sign())
}

func TestTransferZeroAmount(t *testing.T) {
	require := require.New(t)

	ledger := NewSimpleLedger()
	alice := ids.GenerateTestShortID()
	bob := ids.GenerateTestShortID()

	require.NoError(ledger.Mint(alice, big.NewInt(100)))
	require.ErrorIs(ledger.Transfer(alice, bob, big.NewInt(0)), ErrInvalidAmount)
}

func TestBalanceOfReturnsCopy(t *testing.T) {
	require := require.New(t)

	ledger := NewSimpleLedger()
	holder := ids.GenerateTestShortID()

	require.NoError(ledger.Mint(holder, big.NewInt(100)))

	balance := ledger.BalanceOf(holder)
	balance.SetInt64(0)

	require.Equal(int64(100), ledger.BalanceOf(holder).Int64())
}
