// Copyright 2025 PolyCrypt GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package asset provides in-process transfer backends for the asset holder:
// a native currency with call value semantics and an ERC20 style token with
// allowance semantics.
package asset

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	perrors "github.com/pkg/errors"
)

var (
	// ErrInsufficientBalance is returned if an account cannot cover a
	// transfer.
	ErrInsufficientBalance = errors.New("transfer amount exceeds balance")
	// ErrInsufficientAllowance is returned if a spender is not approved to
	// transfer the requested amount.
	ErrInsufficientAllowance = errors.New("transfer amount exceeds allowance")
	// ErrInvalidAmount is returned for negative or missing amounts.
	ErrInvalidAmount = errors.New("invalid amount")
)

// ledger is a balance book. It is not safe for concurrent use.
type ledger map[common.Address]*big.Int

func (l ledger) balanceOf(addr common.Address) *big.Int {
	if b, ok := l[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (l ledger) mint(to common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	l[to] = new(big.Int).Add(l.balanceOf(to), amount)
	return nil
}

func (l ledger) transfer(from, to common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	bal := l.balanceOf(from)
	if bal.Cmp(amount) < 0 {
		return perrors.WithMessagef(ErrInsufficientBalance, "%v has %v, needs %v", from.Hex(), bal, amount)
	}
	l[from] = bal.Sub(bal, amount)
	l[to] = new(big.Int).Add(l.balanceOf(to), amount)
	return nil
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}
