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
// Package payment runs payment channels between participants that fund and
// settle on an asset holder.
package payment

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	pchannel "perun.network/go-perun/channel"
	"perun.network/go-perun/log"

	"perun.network/perun-assetholder/channel"
	"perun.network/perun-assetholder/client"
	"perun.network/perun-assetholder/wallet"
)

// PaymentClient is one participant of payment channels. It deposits into the
// asset holder directly and withdraws through the asset holder's REST API.
type PaymentClient struct {
	account    *wallet.Account
	funder     *channel.Funder
	rest       *client.Client
	withdrawer *client.Withdrawer
	log        log.Embedding
}

// NewPaymentClient returns a client for account.
func NewPaymentClient(account *wallet.Account, holder *channel.AssetHolder, asset *channel.Asset, rest *client.Client) *PaymentClient {
	return &PaymentClient{
		account:    account,
		funder:     channel.NewFunder(holder, asset, account.Address()),
		rest:       rest,
		withdrawer: client.NewWithdrawer(account, rest),
		log:        log.MakeEmbedding(log.WithField("participant", account.Address().Hex())),
	}
}

// Address returns the on-ledger identity of the client.
func (c *PaymentClient) Address() common.Address {
	return c.account.Address()
}

// Funder returns the funder depositing for the client.
func (c *PaymentClient) Funder() pchannel.Funder {
	return c.funder
}

// Withdraw pays all holdings of the client in cid to receiver and returns the
// amount withdrawn.
func (c *PaymentClient) Withdraw(ctx context.Context, cid pchannel.ID, receiver common.Address) (*big.Int, error) {
	funding, err := c.rest.Funding(ctx, cid, c.Address())
	if err != nil {
		return nil, errors.WithMessage(err, "querying holdings")
	}
	if funding.Amount.Sign() == 0 {
		c.log.Log().Debugf("Nothing to withdraw from channel 0x%x", cid)
		return funding.Amount, nil
	}
	if _, err := c.withdrawer.Withdraw(ctx, cid, receiver, funding.Amount); err != nil {
		return nil, errors.WithMessage(err, "withdrawing")
	}
	c.log.Log().Infof("Withdrew %v from channel 0x%x to %v", funding.Amount, cid, receiver.Hex())
	return funding.Amount, nil
}
