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

package wallet

import (
	"crypto/ecdsa"
	"errors"
	"io"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	pwallet "perun.network/go-perun/wallet"
)

// Account is used for signing withdrawal authorizations.
type Account struct {
	// privateKey is the secp256k1 private key of the account.
	privateKey *ecdsa.PrivateKey
}

// NewAccount wraps the given private key into an Account.
func NewAccount(key *ecdsa.PrivateKey) *Account {
	return &Account{privateKey: key}
}

// NewRandomAccount creates a new account with a private key drawn from rng.
func NewRandomAccount(rng io.Reader) (*Account, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rng)
	if err != nil {
		return nil, err
	}
	return NewAccount(key), nil
}

// AccountFromHex parses a hex encoded private key.
func AccountFromHex(hexKey string) (*Account, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, err
	}
	return NewAccount(key), nil
}

// Address returns the on-chain identity of the account.
func (a Account) Address() common.Address {
	return crypto.PubkeyToAddress(a.privateKey.PublicKey)
}

// SignHash signs digest as an Ethereum signed message. The recovery id of the
// returned signature is shifted into {27, 28}.
func (a Account) SignHash(digest common.Hash) (pwallet.Sig, error) {
	if a.privateKey == nil {
		return nil, errors.New("account has no private key")
	}
	sig, err := crypto.Sign(accounts.TextHash(digest.Bytes()), a.privateKey)
	if err != nil {
		return nil, err
	}
	sig[RecoveryIDOffset] += 27
	return sig, nil
}

// SignData hashes data with keccak256 and signs the digest, see SignHash.
func (a Account) SignData(data []byte) (pwallet.Sig, error) {
	return a.SignHash(crypto.Keccak256Hash(data))
}
