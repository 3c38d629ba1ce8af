// Copyright 2025 PolyCrypt GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store_test

import (
	"errors"
	"math/big"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	pchannel "perun.network/go-perun/channel"
	pkgtest "polycry.pt/poly-go/test"

	"perun.network/perun-assetholder/store"
	"perun.network/perun-assetholder/wire"
)

func stores(t *testing.T) map[string]store.Store {
	t.Helper()
	b, err := store.OpenBolt(filepath.Join(t.TempDir(), "assetholder.db"))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return map[string]store.Store{
		"memory": store.NewMemory(),
		"bolt":   b,
	}
}

func randomOutcome(rng *rand.Rand, cid pchannel.ID, n int) *store.Outcome {
	o := &store.Outcome{}
	for i := 0; i < n; i++ {
		var part common.Address
		rng.Read(part[:])
		o.Participants = append(o.Participants, part)
		o.FundingIDs = append(o.FundingIDs, wire.CalcFundingID(cid, part))
		o.Balances = append(o.Balances, big.NewInt(rng.Int63()))
		o.Payouts = append(o.Payouts, big.NewInt(rng.Int63()))
	}
	return o
}

func requireOutcomeEqual(t *testing.T, want, got *store.Outcome) {
	t.Helper()
	require.Equal(t, want.Participants, got.Participants)
	require.Equal(t, want.FundingIDs, got.FundingIDs)
	require.Len(t, got.Balances, len(want.Balances))
	require.Len(t, got.Payouts, len(want.Payouts))
	for i := range want.Balances {
		require.Zero(t, want.Balances[i].Cmp(got.Balances[i]))
		require.Zero(t, want.Payouts[i].Cmp(got.Payouts[i]))
	}
}

func TestStore_Holdings(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			rng := pkgtest.Prng(t)
			var fid wire.FundingID
			rng.Read(fid[:])

			h, err := s.Holding(fid)
			require.NoError(t, err)
			require.Zero(t, h.Sign(), "unknown funding ids hold zero")

			require.NoError(t, s.Update(func(tx store.Tx) error {
				if err := tx.SetHolding(fid, big.NewInt(42)); err != nil {
					return err
				}
				staged, err := tx.Holding(fid)
				require.NoError(t, err)
				require.Zero(t, staged.Cmp(big.NewInt(42)), "tx reads its own writes")
				return nil
			}))
			h, err = s.Holding(fid)
			require.NoError(t, err)
			require.Zero(t, h.Cmp(big.NewInt(42)))

			require.Error(t, s.Update(func(tx store.Tx) error {
				return tx.SetHolding(fid, big.NewInt(-1))
			}))

			abort := errors.New("abort")
			err = s.Update(func(tx store.Tx) error {
				require.NoError(t, tx.SetHolding(fid, big.NewInt(7)))
				return abort
			})
			require.ErrorIs(t, err, abort)
			h, err = s.Holding(fid)
			require.NoError(t, err)
			require.Zero(t, h.Cmp(big.NewInt(42)), "aborted tx must not change state")

			require.NoError(t, s.Update(func(tx store.Tx) error {
				return tx.SetHolding(fid, new(big.Int))
			}))
			count := 0
			require.NoError(t, s.ForEachHolding(func(wire.FundingID, *big.Int) error {
				count++
				return nil
			}))
			require.Zero(t, count, "zero holdings are not listed")
		})
	}
}

func TestStore_Settlement(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			rng := pkgtest.Prng(t)
			var cid pchannel.ID
			rng.Read(cid[:])
			o := randomOutcome(rng, cid, 3)

			settled, err := s.Settled(cid)
			require.NoError(t, err)
			require.False(t, settled)
			_, ok, err := s.Outcome(cid)
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, s.Update(func(tx store.Tx) error {
				for i, fid := range o.FundingIDs {
					if err := tx.SetHolding(fid, o.Payouts[i]); err != nil {
						return err
					}
				}
				return tx.SetSettled(cid, o)
			}))

			settled, err = s.Settled(cid)
			require.NoError(t, err)
			require.True(t, settled)
			for _, fid := range o.FundingIDs {
				fs, err := s.FundingSettled(fid)
				require.NoError(t, err)
				require.True(t, fs)
			}
			got, ok, err := s.Outcome(cid)
			require.NoError(t, err)
			require.True(t, ok)
			requireOutcomeEqual(t, o, got)

			err = s.Update(func(tx store.Tx) error {
				return tx.SetSettled(cid, o)
			})
			require.ErrorIs(t, err, store.ErrAlreadySettled)

			outcomes := 0
			require.NoError(t, s.ForEachOutcome(func(c pchannel.ID, _ *store.Outcome) error {
				require.Equal(t, cid, c)
				outcomes++
				return nil
			}))
			require.Equal(t, 1, outcomes)
		})
	}
}

func TestMemory_OutcomeIsCopied(t *testing.T) {
	rng := pkgtest.Prng(t)
	s := store.NewMemory()
	var cid pchannel.ID
	rng.Read(cid[:])
	o := randomOutcome(rng, cid, 2)
	require.NoError(t, s.Update(func(tx store.Tx) error { return tx.SetSettled(cid, o) }))

	o.Payouts[0].SetInt64(-1)
	got, _, err := s.Outcome(cid)
	require.NoError(t, err)
	require.NotEqual(t, int64(-1), got.Payouts[0].Int64())
}

func TestBolt_Reopen(t *testing.T) {
	rng := pkgtest.Prng(t)
	path := filepath.Join(t.TempDir(), "assetholder.db")
	var cid pchannel.ID
	rng.Read(cid[:])
	o := randomOutcome(rng, cid, 2)

	s, err := store.OpenBolt(path)
	require.NoError(t, err)
	require.Equal(t, path, s.Path())
	require.NoError(t, s.Update(func(tx store.Tx) error {
		if err := tx.SetHolding(o.FundingIDs[0], wire.MaxAmount); err != nil {
			return err
		}
		return tx.SetSettled(cid, o)
	}))
	require.NoError(t, s.Close())

	s, err = store.OpenBolt(path)
	require.NoError(t, err)
	defer s.Close()

	h, err := s.Holding(o.FundingIDs[0])
	require.NoError(t, err)
	require.Zero(t, h.Cmp(wire.MaxAmount))
	settled, err := s.Settled(cid)
	require.NoError(t, err)
	require.True(t, settled)
	got, ok, err := s.Outcome(cid)
	require.NoError(t, err)
	require.True(t, ok)
	requireOutcomeEqual(t, o, got)
}
