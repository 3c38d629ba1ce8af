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

package channel_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	pchannel "perun.network/go-perun/channel"
	pkgtest "polycry.pt/poly-go/test"

	"perun.network/perun-assetholder/channel"
	chtest "perun.network/perun-assetholder/channel/test"
)

const defaultTestTimeout = 10 * time.Second

func (s *testSetup) funders(as *channel.Asset) []pchannel.Funder {
	funders := make([]pchannel.Funder, len(s.parts))
	for i, p := range s.parts {
		funders[i] = channel.NewFunder(s.holder, as, p.Address())
	}
	return funders
}

func TestFunding_Happy(t *testing.T) {
	s := newSetup(t)
	rng := pkgtest.Prng(t)
	as := channel.NewNativeAsset(s.native.Custody())
	state := chtest.NewState(rng, as, []*big.Int{ether(3), ether(5)}, false)

	ctx, cancel := context.WithTimeout(s.ctx, defaultTestTimeout)
	defer cancel()
	require.NoError(t, chtest.FundAll(ctx, s.funders(as), chtest.NewFundingReqs(state)))

	s.requireHoldings(s.fid(state.ID, A), ether(3))
	s.requireHoldings(s.fid(state.ID, B), ether(5))

	// Funding again is a no-op.
	require.NoError(t, chtest.FundAll(ctx, s.funders(as), chtest.NewFundingReqs(state)))
	s.requireHoldings(s.fid(state.ID, A), ether(3))
	require.Len(t, s.holder.Events(), 2)
}

func TestFunding_TopUpAndZeroBalance(t *testing.T) {
	s := newSetup(t)
	rng := pkgtest.Prng(t)
	as := channel.NewNativeAsset(s.native.Custody())
	state := chtest.NewState(rng, as, []*big.Int{ether(3), new(big.Int)}, false)
	s.deposit(state.ID, A, ether(1))

	reqs := chtest.NewFundingReqs(state)
	funders := s.funders(as)
	require.NoError(t, funders[A].Fund(s.ctx, reqs[A]))
	require.NoError(t, funders[B].Fund(s.ctx, reqs[B]))
	s.requireHoldings(s.fid(state.ID, A), ether(3))
	s.requireHoldings(s.fid(state.ID, B), new(big.Int))
	require.Zero(t, s.native.BalanceOf(s.parts[A].Address()).Cmp(ether(97)))
}

func TestFunding_Errors(t *testing.T) {
	s := newSetup(t)
	rng := pkgtest.Prng(t)
	as := channel.NewNativeAsset(s.native.Custody())
	other := channel.NewTokenAsset(s.native.Custody(), common.HexToAddress("0x70ce"))
	state := chtest.NewState(rng, other, []*big.Int{ether(1), ether(1)}, false)

	f := channel.NewFunder(s.holder, as, s.parts[A].Address())
	require.ErrorIs(t, f.Fund(s.ctx, chtest.NewFundingReqs(state)[A]), channel.ErrAssetNotFound)

	state = chtest.NewState(rng, as, []*big.Int{ether(1), ether(1)}, false)
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	require.ErrorIs(t, f.Fund(ctx, chtest.NewFundingReqs(state)[A]), context.Canceled)

	// The participant cannot afford its balance.
	state = chtest.NewState(rng, as, []*big.Int{ether(1000), ether(1)}, false)
	require.Error(t, f.Fund(s.ctx, chtest.NewFundingReqs(state)[A]))
	s.requireHoldings(s.fid(state.ID, A), new(big.Int))
}

func TestAdjudicator_Conclude(t *testing.T) {
	s := newSetup(t)
	rng := pkgtest.Prng(t)
	as := channel.NewNativeAsset(s.native.Custody())
	state := chtest.NewState(rng, as, []*big.Int{ether(3), ether(5)}, false)
	require.NoError(t, chtest.FundAll(s.ctx, s.funders(as), chtest.NewFundingReqs(state)))

	adj := channel.NewAdjudicator(s.holder, as, s.adj)
	require.ErrorIs(t, adj.Conclude(s.ctx, s.addrs(), state), channel.ErrNotFinal)

	final := &pchannel.State{
		ID:      state.ID,
		Version: state.Version + 1,
		Allocation: pchannel.Allocation{
			Assets:   state.Assets,
			Balances: pchannel.Balances{{ether(6), ether(2)}},
		},
		IsFinal: true,
	}
	require.NoError(t, adj.Conclude(s.ctx, s.addrs(), final))
	s.requireHoldings(s.fid(state.ID, A), ether(6))
	s.requireHoldings(s.fid(state.ID, B), ether(2))
	require.ErrorIs(t, adj.Conclude(s.ctx, s.addrs(), final), channel.ErrAlreadySettled)

	// An adjudicator with the wrong identity is rejected by the asset holder.
	impostor := channel.NewAdjudicator(s.holder, as, s.sender)
	other := chtest.NewState(rng, as, []*big.Int{ether(1), ether(1)}, true)
	require.ErrorIs(t, impostor.Conclude(s.ctx, s.addrs(), other), channel.ErrUnauthorized)
}

func TestAdjudicator_Subscribe(t *testing.T) {
	s := newSetup(t)
	rng := pkgtest.Prng(t)
	as := channel.NewNativeAsset(s.native.Custody())
	state := chtest.NewState(rng, as, []*big.Int{ether(1), ether(1)}, true)
	adj := channel.NewAdjudicator(s.holder, as, s.adj)

	ctx, cancel := context.WithTimeout(s.ctx, defaultTestTimeout)
	defer cancel()
	sub, err := adj.Subscribe(ctx, state.ID)
	require.NoError(t, err)

	// Settling another channel does not conclude this one.
	other := chtest.NewState(rng, as, []*big.Int{ether(1), ether(1)}, true)
	require.NoError(t, adj.Conclude(ctx, s.addrs(), other))
	require.NoError(t, adj.Conclude(ctx, s.addrs(), state))

	ev := sub.Next()
	require.IsType(t, &pchannel.ConcludedEvent{}, ev)
	require.Equal(t, state.ID, ev.ID())
	require.True(t, ev.Timeout().IsElapsed(ctx))
	require.Nil(t, sub.Next())
	require.NoError(t, sub.Err())
	require.NoError(t, sub.Close())

	// Subscribing to a settled channel yields the event right away.
	sub, err = adj.Subscribe(ctx, state.ID)
	require.NoError(t, err)
	require.NotNil(t, sub.Next())
	require.NoError(t, sub.Close())

	// Closing unblocks Next.
	sub, err = adj.Subscribe(ctx, pchannel.ID{1})
	require.NoError(t, err)
	go func() {
		time.Sleep(10 * time.Millisecond)
		sub.Close() //nolint:errcheck
	}()
	require.Nil(t, sub.Next())

	// Err may be read while the subscription winds down.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = sub.Err()
		}
	}()
	<-done
	require.NoError(t, sub.Err())
}

func TestAsset(t *testing.T) {
	holder := common.HexToAddress("0xa55e7")
	native := channel.NewNativeAsset(holder)
	token := channel.NewTokenAsset(holder, common.HexToAddress("0x70ce"))
	require.True(t, native.IsNative())
	require.False(t, token.IsNative())

	for _, as := range []*channel.Asset{native, token} {
		data, err := as.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, data, channel.AssetLen)

		dec := new(channel.Asset)
		require.NoError(t, dec.UnmarshalBinary(data))
		require.True(t, as.Equal(dec))
		require.Equal(t, *as, *dec)
	}
	require.False(t, native.Equal(token))
	require.Error(t, new(channel.Asset).UnmarshalBinary(make([]byte, 3)))
}
