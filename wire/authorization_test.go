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

package wire_test

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	pchannel "perun.network/go-perun/channel"
	pkgtest "polycry.pt/poly-go/test"

	"perun.network/perun-assetholder/wire"
)

func randomAuthorization(rng *rand.Rand) wire.Authorization {
	var a wire.Authorization
	rng.Read(a.ChannelID[:])
	rng.Read(a.Participant[:])
	rng.Read(a.Receiver[:])
	a.Amount = new(big.Int).Rand(rng, wire.MaxAmount)
	return a
}

func TestAuthorization_EncodeLayout(t *testing.T) {
	rng := pkgtest.Prng(t)
	a := randomAuthorization(rng)

	enc, err := a.Encode()
	require.NoError(t, err)
	require.Len(t, enc, wire.AuthorizationLen)

	require.Equal(t, a.ChannelID[:], enc[0:32])
	require.Equal(t, common.LeftPadBytes(a.Participant[:], 32), enc[32:64])
	require.Equal(t, common.LeftPadBytes(a.Receiver[:], 32), enc[64:96])
	require.Equal(t, common.LeftPadBytes(a.Amount.Bytes(), 32), enc[96:128])

	digest, err := a.Digest()
	require.NoError(t, err)
	require.Equal(t, crypto.Keccak256Hash(enc), digest)
	require.Equal(t, wire.Digest(enc), digest)
}

func TestAuthorization_RoundTrip(t *testing.T) {
	rng := pkgtest.Prng(t)
	for i := 0; i < 16; i++ {
		a := randomAuthorization(rng)
		enc, err := a.Encode()
		require.NoError(t, err)
		dec, err := wire.DecodeAuthorization(enc)
		require.NoError(t, err)
		require.Equal(t, a.ChannelID, dec.ChannelID)
		require.Equal(t, a.Participant, dec.Participant)
		require.Equal(t, a.Receiver, dec.Receiver)
		require.Zero(t, a.Amount.Cmp(dec.Amount))
	}

	_, err := wire.DecodeAuthorization(make([]byte, wire.AuthorizationLen-1))
	require.Error(t, err)
}

func TestAuthorization_Injective(t *testing.T) {
	rng := pkgtest.Prng(t)
	base := randomAuthorization(rng)
	baseEnc, err := base.Encode()
	require.NoError(t, err)

	mutations := []func(a *wire.Authorization){
		func(a *wire.Authorization) { a.ChannelID[31] ^= 1 },
		func(a *wire.Authorization) { a.Participant[0] ^= 1 },
		func(a *wire.Authorization) { a.Receiver[19] ^= 1 },
		func(a *wire.Authorization) { a.Amount = new(big.Int).Xor(a.Amount, big.NewInt(1)) },
		// Swapping participant and receiver must change the encoding as well.
		func(a *wire.Authorization) { a.Participant, a.Receiver = a.Receiver, a.Participant },
	}
	for _, mutate := range mutations {
		a := base
		a.Amount = new(big.Int).Set(base.Amount)
		mutate(&a)
		enc, err := a.Encode()
		require.NoError(t, err)
		require.NotEqual(t, baseEnc, enc)
	}
}

func TestAuthorization_InvalidAmount(t *testing.T) {
	a := wire.Authorization{}
	_, err := a.Encode()
	require.ErrorIs(t, err, wire.ErrAmountRange)

	a.Amount = big.NewInt(-1)
	_, err = a.Digest()
	require.ErrorIs(t, err, wire.ErrAmountRange)

	a.Amount = new(big.Int).Add(wire.MaxAmount, big.NewInt(1))
	_, err = a.Encode()
	require.ErrorIs(t, err, wire.ErrAmountRange)

	a.Amount = wire.MaxAmount
	_, err = a.Encode()
	require.NoError(t, err)
}

func TestCalcFundingID(t *testing.T) {
	rng := pkgtest.Prng(t)
	var cid pchannel.ID
	var part common.Address
	rng.Read(cid[:])
	rng.Read(part[:])

	buf := make([]byte, 64)
	copy(buf, cid[:])
	copy(buf[44:], part[:])
	want := crypto.Keccak256(buf)

	fid := wire.CalcFundingID(cid, part)
	require.Equal(t, want, fid[:])
	require.Equal(t, fid, wire.Authorization{ChannelID: cid, Participant: part}.FundingID())

	other := part
	other[0] ^= 1
	require.NotEqual(t, fid, wire.CalcFundingID(cid, other))

	parsed, err := wire.ParseFundingID(fid.String())
	require.NoError(t, err)
	require.Equal(t, fid, parsed)
	_, err = wire.ParseFundingID("0x1234")
	require.Error(t, err)
}

func TestParseChannelID(t *testing.T) {
	cid, err := wire.ParseChannelID("0x01ff")
	require.NoError(t, err)
	require.Equal(t, byte(0x01), cid[0])
	require.Equal(t, byte(0xff), cid[1])
	require.Equal(t, make([]byte, 30), cid[2:])

	_, err = wire.ParseChannelID("0x" + common.Bytes2Hex(make([]byte, 33)))
	require.Error(t, err)
	_, err = wire.ParseChannelID("nohex")
	require.Error(t, err)
}

func TestUInt256Parts(t *testing.T) {
	rng := pkgtest.Prng(t)
	for _, v := range []*big.Int{big.NewInt(0), big.NewInt(1), wire.MaxAmount, new(big.Int).Rand(rng, wire.MaxAmount)} {
		parts, err := wire.MakeUInt256Parts(v)
		require.NoError(t, err)
		require.Zero(t, v.Cmp(wire.UInt256PartsToBig(parts)))
	}
	_, err := wire.MakeUInt256Parts(big.NewInt(-5))
	require.ErrorIs(t, err, wire.ErrAmountRange)
}
