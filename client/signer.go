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
package client

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	pchannel "perun.network/go-perun/channel"
	pwallet "perun.network/go-perun/wallet"

	"perun.network/perun-assetholder/wallet"
	"perun.network/perun-assetholder/wire"
)

// Sender submits signed withdrawals.
type Sender interface {
	Withdraw(ctx context.Context, auth wire.Authorization, sig pwallet.Sig) (*big.Int, error)
}

// Withdrawer signs withdrawals of one participant and hands them to a
// Sender, usually a Client.
type Withdrawer struct {
	account *wallet.Account
	sender  Sender
}

// NewWithdrawer returns a Withdrawer signing with account.
func NewWithdrawer(account *wallet.Account, sender Sender) *Withdrawer {
	return &Withdrawer{account: account, sender: sender}
}

// Participant returns the identity the withdrawer signs for.
func (w *Withdrawer) Participant() common.Address {
	return w.account.Address()
}

// Authorize returns the authorization to pay amount of the participant's
// holdings in cid to receiver, together with its signature.
func (w *Withdrawer) Authorize(cid pchannel.ID, receiver common.Address, amount *big.Int) (wire.Authorization, pwallet.Sig, error) {
	auth := wire.Authorization{
		ChannelID:   cid,
		Participant: w.account.Address(),
		Receiver:    receiver,
		Amount:      amount,
	}
	digest, err := auth.Digest()
	if err != nil {
		return auth, nil, errors.WithMessage(err, "hashing authorization")
	}
	sig, err := w.account.SignHash(digest)
	if err != nil {
		return auth, nil, errors.WithMessage(err, "signing authorization")
	}
	return auth, sig, nil
}

// Withdraw signs and sends a withdrawal. It returns the remaining holdings.
func (w *Withdrawer) Withdraw(ctx context.Context, cid pchannel.ID, receiver common.Address, amount *big.Int) (*big.Int, error) {
	auth, sig, err := w.Authorize(cid, receiver, amount)
	if err != nil {
		return nil, err
	}
	return w.sender.Withdraw(ctx, auth, sig)
}
