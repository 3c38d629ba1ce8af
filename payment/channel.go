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
package payment

import (
	"context"
	"errors"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	perrors "github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	pchannel "perun.network/go-perun/channel"
	"polycry.pt/poly-go/sync"

	"perun.network/perun-assetholder/channel"
)

var (
	// ErrInsufficientBalance is returned for payments exceeding the payer's
	// channel balance.
	ErrInsufficientBalance = errors.New("insufficient channel balance")
	// ErrChannelFinal is returned for updates of a finalized channel.
	ErrChannelFinal = errors.New("channel is final")
)

// PaymentChannel is a two-party channel over a single asset whose states
// both parties agree on locally.
type PaymentChannel struct {
	mu    sync.Mutex
	parts []common.Address
	state *pchannel.State
}

// NewPaymentChannel returns a channel with a random ID between parts,
// starting with balances bals of asset.
func NewPaymentChannel(rng io.Reader, asset *channel.Asset, parts []common.Address, bals []*big.Int) (*PaymentChannel, error) {
	if len(parts) != 2 || len(bals) != 2 { //nolint:gomnd
		return nil, perrors.WithMessagef(channel.ErrLengthMismatch, "%d participants, %d balances", len(parts), len(bals))
	}
	state := &pchannel.State{
		Allocation: pchannel.Allocation{
			Assets:   []pchannel.Asset{asset},
			Balances: pchannel.Balances{cloneBals(bals)},
		},
	}
	if _, err := io.ReadFull(rng, state.ID[:]); err != nil {
		return nil, perrors.WithMessage(err, "generating channel id")
	}
	return &PaymentChannel{
		parts: append([]common.Address(nil), parts...),
		state: state,
	}, nil
}

// ID returns the channel ID.
func (c *PaymentChannel) ID() pchannel.ID {
	return c.state.ID
}

// Participants returns the channel participants in state order.
func (c *PaymentChannel) Participants() []common.Address {
	return append([]common.Address(nil), c.parts...)
}

// Balance returns the current balance of participant idx.
func (c *PaymentChannel) Balance(idx pchannel.Index) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.state.Balances[0][idx])
}

// State returns a copy of the current state.
func (c *PaymentChannel) State() *pchannel.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyState()
}

// SendPayment moves amount from participant from to the other participant.
func (c *PaymentChannel) SendPayment(from pchannel.Index, amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.IsFinal {
		return ErrChannelFinal
	}
	if from > 1 {
		return perrors.Errorf("participant index %d out of range", from)
	}
	if amount.Sign() < 0 {
		return perrors.Errorf("negative payment %v", amount)
	}
	bals := c.state.Balances[0]
	if bals[from].Cmp(amount) < 0 {
		return perrors.WithMessagef(ErrInsufficientBalance, "balance %v, payment %v", bals[from], amount)
	}
	to := 1 - from
	bals[from] = new(big.Int).Sub(bals[from], amount)
	bals[to] = new(big.Int).Add(bals[to], amount)
	c.state.Version++
	return nil
}

// Finalize marks the current state as final. No payments are accepted
// afterwards.
func (c *PaymentChannel) Finalize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.IsFinal {
		c.state.IsFinal = true
		c.state.Version++
	}
}

// Fund runs the funders of all participants concurrently on the current
// state. funders[i] funds participant i.
func (c *PaymentChannel) Fund(ctx context.Context, funders []pchannel.Funder) error {
	if len(funders) != len(c.parts) {
		return channel.ErrLengthMismatch
	}
	state := c.State()
	g, ctx := errgroup.WithContext(ctx)
	for i := range funders {
		i := i
		g.Go(func() error {
			return funders[i].Fund(ctx, pchannel.FundingReq{State: state, Idx: pchannel.Index(i)})
		})
	}
	return g.Wait()
}

// Settle finalizes the channel and concludes it with adj.
func (c *PaymentChannel) Settle(ctx context.Context, adj *channel.Adjudicator) error {
	c.Finalize()
	return adj.Conclude(ctx, c.Participants(), c.State())
}

func (c *PaymentChannel) copyState() *pchannel.State {
	s := *c.state
	s.Allocation = pchannel.Allocation{
		Assets:   append([]pchannel.Asset(nil), c.state.Assets...),
		Balances: pchannel.Balances{cloneBals(c.state.Balances[0])},
	}
	return &s
}

func cloneBals(bals []*big.Int) []*big.Int {
	c := make([]*big.Int, len(bals))
	for i, b := range bals {
		c[i] = new(big.Int).Set(b)
	}
	return c
}
