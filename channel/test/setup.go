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

// Package test contains helpers for testing go-perun integrations of the
// asset holder.
package test

import (
	"context"
	"math/big"
	"math/rand"

	"golang.org/x/sync/errgroup"
	pchannel "perun.network/go-perun/channel"
)

// NewState returns a ledger channel state with a random ID holding bals of
// the single asset.
func NewState(rng *rand.Rand, asset pchannel.Asset, bals []*big.Int, final bool) *pchannel.State {
	s := &pchannel.State{
		Version: uint64(rng.Int63()),
		Allocation: pchannel.Allocation{
			Assets:   []pchannel.Asset{asset},
			Balances: pchannel.Balances{bals},
		},
		IsFinal: final,
	}
	rng.Read(s.ID[:])
	return s
}

// NewFundingReqs returns one funding request per participant of state.
func NewFundingReqs(state *pchannel.State) []pchannel.FundingReq {
	reqs := make([]pchannel.FundingReq, len(state.Balances[0]))
	for i := range reqs {
		reqs[i] = pchannel.FundingReq{
			State: state,
			Idx:   pchannel.Index(i),
		}
	}
	return reqs
}

// FundAll runs funders[i] on reqs[i] concurrently and returns the first
// error.
func FundAll(ctx context.Context, funders []pchannel.Funder, reqs []pchannel.FundingReq) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := range funders {
		i := i
		g.Go(func() error {
			return funders[i].Fund(ctx, reqs[i])
		})
	}
	return g.Wait()
}
