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

var _ channel.TransferBackend = (*Native)(nil)

// Native is the native currency of a chain. A deposit transfers the value
// attached to the call into the custody account of the asset holder.
type Native struct {
	mu       sync.Mutex
	custody  common.Address
	balances ledger
	log      log.Embedding
}

// NewNative creates a native currency whose asset holder funds are kept in
// the custody account.
func NewNative(custody common.Address) *Native {
	return &Native{
		custody:  custody,
		balances: make(ledger),
		log:      log.MakeEmbedding(log.WithField("asset", "native")),
	}
}

// Custody returns the account holding the asset holder's funds.
func (n *Native) Custody() common.Address {
	return n.custody
}

// Mint creates amount out of thin air for to.
func (n *Native) Mint(to common.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.balances.mint(to, amount)
}

// BalanceOf returns the balance of addr.
func (n *Native) BalanceOf(addr common.Address) *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.balances.balanceOf(addr)
}

// Credit moves the call value to the custody account. The call value must
// equal amount.
func (n *Native) Credit(ctx context.Context, call channel.Call, amount *big.Int) error {
	value := call.ValueOrZero()
	if value.Cmp(amount) != 0 {
		return errors.WithMessagef(channel.ErrAmountMismatch, "value %v, amount %v", value, amount)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.balances.transfer(call.From, n.custody, value)
}

// Pay moves amount from the custody account to receiver.
func (n *Native) Pay(ctx context.Context, receiver common.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.balances.transfer(n.custody, receiver, amount); err != nil {
		return err
	}
	n.log.Log().Debugf("Paid %v to %v", amount, receiver.Hex())
	return nil
}
