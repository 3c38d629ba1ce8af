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

package wire

import (
	"errors"
	"fmt"
	"log"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	perrors "github.com/pkg/errors"
	pchannel "perun.network/go-perun/channel"
)

// AuthorizationLen is the length of an encoded Authorization: four ABI words.
const AuthorizationLen = 4 * 32

var (
	abiBytes32 = mustType("bytes32")
	abiAddress = mustType("address")
	abiUint256 = mustType("uint256")

	fundingArgs       = abi.Arguments{{Type: abiBytes32}, {Type: abiAddress}}
	authorizationArgs = abi.Arguments{{Type: abiBytes32}, {Type: abiAddress}, {Type: abiAddress}, {Type: abiUint256}}

	// MaxAmount is the largest amount that fits into an ABI uint256.
	MaxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)) //nolint:gomnd

	// ErrAmountRange is returned for amounts that are nil, negative or wider
	// than 256 bits.
	ErrAmountRange = errors.New("amount out of uint256 range")
)

// FundingID identifies the holdings of one participant in one channel.
type FundingID [32]byte

// String returns the 0x-prefixed hex representation of the funding ID.
func (id FundingID) String() string {
	return hexutil.Encode(id[:])
}

// CalcFundingID returns keccak256(abi.encode(channelID, participant)).
func CalcFundingID(channelID pchannel.ID, participant common.Address) FundingID {
	enc, err := fundingArgs.Pack([32]byte(channelID), participant)
	if err != nil {
		log.Panicf("encoding funding id: %v", err)
	}
	return FundingID(crypto.Keccak256Hash(enc))
}

// ParseFundingID parses a 0x-prefixed hex funding ID.
func ParseFundingID(s string) (FundingID, error) {
	var id FundingID
	b, err := hexutil.Decode(s)
	if err != nil {
		return id, err
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("funding id has length %d, want %d", len(b), len(id))
	}
	copy(id[:], b)
	return id, nil
}

// ParseChannelID parses a 0x-prefixed hex channel ID. Shorter inputs are
// right-padded with zeros, matching the zero-padding applied by signers to
// bytes32 arguments.
func ParseChannelID(s string) (pchannel.ID, error) {
	var id pchannel.ID
	b, err := hexutil.Decode(s)
	if err != nil {
		return id, err
	}
	if len(b) > len(id) {
		return id, fmt.Errorf("channel id has length %d, max %d", len(b), len(id))
	}
	copy(id[:], b)
	return id, nil
}

// Authorization lets Participant redeem Amount of its holdings in ChannelID
// to Receiver. It carries no nonce: a signed authorization stays valid until
// the holdings are exhausted.
type Authorization struct {
	ChannelID   pchannel.ID
	Participant common.Address
	Receiver    common.Address
	Amount      *big.Int
}

// Encode returns abi.encode(channelID, participant, receiver, amount).
func (a Authorization) Encode() ([]byte, error) {
	if err := CheckAmount(a.Amount); err != nil {
		return nil, err
	}
	return authorizationArgs.Pack([32]byte(a.ChannelID), a.Participant, a.Receiver, a.Amount)
}

// Digest returns the keccak256 hash of the encoded authorization. This is the
// message signed by the participant.
func (a Authorization) Digest() (common.Hash, error) {
	enc, err := a.Encode()
	if err != nil {
		return common.Hash{}, err
	}
	return Digest(enc), nil
}

// FundingID returns the funding ID the authorization is drawn from.
func (a Authorization) FundingID() FundingID {
	return CalcFundingID(a.ChannelID, a.Participant)
}

// DecodeAuthorization decodes an authorization encoded with Encode.
func DecodeAuthorization(data []byte) (Authorization, error) {
	if len(data) != AuthorizationLen {
		return Authorization{}, fmt.Errorf("authorization has length %d, want %d", len(data), AuthorizationLen)
	}
	vals, err := authorizationArgs.Unpack(data)
	if err != nil {
		return Authorization{}, perrors.WithMessage(err, "decoding authorization")
	}
	cid, ok0 := vals[0].([32]byte)
	part, ok1 := vals[1].(common.Address)
	recv, ok2 := vals[2].(common.Address)
	amount, ok3 := vals[3].(*big.Int)
	if !ok0 || !ok1 || !ok2 || !ok3 {
		return Authorization{}, errors.New("unexpected authorization field types")
	}
	return Authorization{
		ChannelID:   cid,
		Participant: part,
		Receiver:    recv,
		Amount:      amount,
	}, nil
}

// Digest hashes data with keccak256.
func Digest(data []byte) common.Hash {
	return crypto.Keccak256Hash(data)
}

// CheckAmount returns ErrAmountRange unless 0 <= amount <= MaxAmount.
func CheckAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 || amount.BitLen() > 256 { //nolint:gomnd
		return ErrAmountRange
	}
	return nil
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		log.Panicf("creating abi type %s: %v", t, err)
	}
	return typ
}
