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
package client_test

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	pchannel "perun.network/go-perun/channel"
	"perun.network/go-perun/log"
	pkgtest "polycry.pt/poly-go/test"

	"perun.network/perun-assetholder/asset"
	"perun.network/perun-assetholder/channel"
	"perun.network/perun-assetholder/client"
	"perun.network/perun-assetholder/rpc"
	"perun.network/perun-assetholder/wallet"
	"perun.network/perun-assetholder/wire"
)

type clientSetup struct {
	ctx    context.Context
	holder *channel.AssetHolder
	native *asset.Native
	client *client.Client
	adj    common.Address
	cid    pchannel.ID
	alice  *wallet.Account
	bob    *wallet.Account
}

func newClientSetup(t *testing.T) *clientSetup {
	t.Helper()
	rng := pkgtest.Prng(t)
	s := &clientSetup{ctx: context.Background()}
	rng.Read(s.adj[:])
	rng.Read(s.cid[:])
	var err error
	s.alice, err = wallet.NewRandomAccount(rng)
	require.NoError(t, err)
	s.bob, err = wallet.NewRandomAccount(rng)
	require.NoError(t, err)

	s.native = asset.NewNative(common.HexToAddress("0xc0ffee"))
	require.NoError(t, s.native.Mint(s.alice.Address(), big.NewInt(50)))
	s.holder = channel.NewAssetHolder(s.adj, s.native)

	srv := rpc.NewRESTServer("", rpc.DefaultMaxBodySize, log.Default(), rpc.AssetHolderEndpoints(s.holder, log.Default()))
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	s.client, err = client.New(strings.TrimPrefix(ts.URL, "http://"))
	require.NoError(t, err)
	return s
}

func TestClient_Queries(t *testing.T) {
	s := newClientSetup(t)
	fid := wire.CalcFundingID(s.cid, s.alice.Address())
	require.NoError(t, s.holder.Deposit(s.ctx, channel.NewCall(s.alice.Address(), big.NewInt(12)), fid, big.NewInt(12)))

	adj, err := s.client.Adjudicator(s.ctx)
	require.NoError(t, err)
	require.Equal(t, s.adj, adj)

	h, err := s.client.Holdings(s.ctx, fid)
	require.NoError(t, err)
	require.Zero(t, h.Cmp(big.NewInt(12)))

	funding, err := s.client.Funding(s.ctx, s.cid, s.alice.Address())
	require.NoError(t, err)
	require.Equal(t, common.Hash(fid), funding.FundingID)
	require.Zero(t, funding.Amount.Cmp(big.NewInt(12)))

	ch, err := s.client.Channel(s.ctx, s.cid)
	require.NoError(t, err)
	require.False(t, ch.Settled)

	parts := []common.Address{s.alice.Address(), s.bob.Address()}
	require.NoError(t, s.holder.SetOutcome(s.ctx, s.adj, s.cid, parts, []*big.Int{big.NewInt(2), big.NewInt(10)}))
	ch, err = s.client.Channel(s.ctx, s.cid)
	require.NoError(t, err)
	require.True(t, ch.Settled)
	require.Zero(t, ch.Outcome.Payouts[1].Cmp(big.NewInt(10)))

	evs, err := s.client.Events(s.ctx, 0)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	xevs, err := s.client.EventsXDR(s.ctx, 1)
	require.NoError(t, err)
	require.Equal(t, s.holder.Events()[1:], xevs)
}

func TestWithdrawer(t *testing.T) {
	s := newClientSetup(t)
	fid := wire.CalcFundingID(s.cid, s.alice.Address())
	require.NoError(t, s.holder.Deposit(s.ctx, channel.NewCall(s.alice.Address(), big.NewInt(10)), fid, big.NewInt(10)))
	parts := []common.Address{s.alice.Address(), s.bob.Address()}
	require.NoError(t, s.holder.SetOutcome(s.ctx, s.adj, s.cid, parts, []*big.Int{big.NewInt(10), big.NewInt(0)}))

	recv := common.HexToAddress("0xbeef")
	w := client.NewWithdrawer(s.alice, s.client)
	require.Equal(t, s.alice.Address(), w.Participant())

	rest, err := w.Withdraw(s.ctx, s.cid, recv, big.NewInt(4))
	require.NoError(t, err)
	require.Zero(t, rest.Cmp(big.NewInt(6)))
	require.Zero(t, s.native.BalanceOf(recv).Cmp(big.NewInt(4)))

	_, err = w.Withdraw(s.ctx, s.cid, recv, big.NewInt(7))
	require.ErrorIs(t, err, channel.ErrInsufficientFunds)
	require.True(t, client.IsStatus(err, http.StatusUnprocessableEntity))

	// bob signs for alice's holdings.
	auth, _, err := w.Authorize(s.cid, recv, big.NewInt(1))
	require.NoError(t, err)
	_, bobSig, err := client.NewWithdrawer(s.bob, s.client).Authorize(s.cid, recv, big.NewInt(1))
	require.NoError(t, err)
	_, err = s.client.Withdraw(s.ctx, auth, bobSig)
	require.ErrorIs(t, err, channel.ErrInvalidSignature)

	_, err = w.Withdraw(s.ctx, s.cid, recv, big.NewInt(-1))
	require.Error(t, err)

	rest, err = w.Withdraw(s.ctx, s.cid, recv, big.NewInt(6))
	require.NoError(t, err)
	require.Zero(t, rest.Sign())
	require.Zero(t, s.native.BalanceOf(recv).Cmp(big.NewInt(10)))
}

func TestNew(t *testing.T) {
	c, err := client.New("localhost:8080")
	require.NoError(t, err)
	require.Equal(t, "http", c.BaseURL.Scheme)

	c, err = client.New("https://example.com/base")
	require.NoError(t, err)
	require.Equal(t, "https", c.BaseURL.Scheme)

	_, err = client.New("http://[::1")
	require.Error(t, err)
}
