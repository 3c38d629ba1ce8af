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

package asset

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"perun.network/go-perun/log"
	"polycry.pt/poly-go/sync"

	"perun.network/perun-assetholder/channel"
)

var _ channel.TransferBackend = (*Token)(nil)

// Token is an ERC20 style token. The asset holder pulls deposits with
// TransferFrom, so depositors must approve the custody account first.
type Token struct {
	mu         sync.Mutex
	address    common.Address
	custody    common.Address
	balances   ledger
	allowances map[common.Address]ledger
	log        log.Embedding
}

// NewToken creates the token at address whose asset holder funds are kept in
// the custody account.
func NewToken(address, custody common.Address) *Token {
	return &Token{
		address:    address,
		custody:    custody,
		balances:   make(ledger),
		allowances: make(map[common.Address]ledger),
		log:        log.MakeEmbedding(log.WithField("token", address.Hex())),
	}
}

// Address returns the token address.
func (t *Token) Address() common.Address {
	return t.address
}

// Custody returns the account holding the asset holder's funds.
func (t *Token) Custody() common.Address {
	return t.custody
}

// Mint creates amount tokens for to.
func (t *Token) Mint(to common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances.mint(to, amount)
}

// BalanceOf returns the token balance of addr.
func (t *Token) BalanceOf(addr common.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances.balanceOf(addr)
}

// Approve sets the amount spender may transfer from owner.
func (t *Token) Approve(owner, spender common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(ledger)
	}
	t.allowances[owner][spender] = new(big.Int).Set(amount)
	return nil
}

// Allowance returns the amount spender may transfer from owner.
func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allowances[owner].balanceOf(spender)
}

// Transfer moves amount from from to to.
func (t *Token) Transfer(from, to common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances.transfer(from, to, amount)
}

// TransferFrom moves amount from from to to on behalf of spender and reduces
// the allowance accordingly.
func (t *Token) TransferFrom(spender, from, to common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	allowed := t.allowances[from].balanceOf(spender)
	if allowed.Cmp(amount) < 0 {
		return errors.WithMessagef(ErrInsufficientAllowance, "%v may spend %v, needs %v", spender.Hex(), allowed, amount)
	}
	if err := t.balances.transfer(from, to, amount); err != nil {
		return err
	}
	if amount.Sign() > 0 {
		t.allowances[from][spender] = allowed.Sub(allowed, amount)
	}
	return nil
}

// Credit pulls amount from the caller into the custody account. Token
// deposits must not carry native value.
func (t *Token) Credit(ctx context.Context, call channel.Call, amount *big.Int) error {
	if call.ValueOrZero().Sign() != 0 {
		return errors.WithMessagef(channel.ErrAmountMismatch, "token deposit carries value %v", call.Value)
	}
	return t.TransferFrom(t.custody, call.From, t.custody, amount)
}

// Pay transfers amount from the custody account to receiver.
func (t *Token) Pay(ctx context.Context, receiver common.Address, amount *big.Int) error {
	if err := t.Transfer(t.custody, receiver, amount); err != nil {
		return err
	}
	t.log.Log().Debugf("Paid %v to %v", amount, receiver.Hex())
	return nil
}
