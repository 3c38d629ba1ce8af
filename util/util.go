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
package util

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand"

	"github.com/ethereum/go-ethereum/common"

	"perun.network/perun-assetholder/wallet"
)

// NewRand returns a math/rand source seeded from crypto/rand.
func NewRand() *mathrand.Rand {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	seed := binary.LittleEndian.Uint64(b[:])
	return mathrand.New(mathrand.NewSource(int64(seed)))
}

// MakeRandPerunWallet returns a new wallet holding one random account.
func MakeRandPerunWallet(rng *mathrand.Rand) (*wallet.EphemeralWallet, *wallet.Account) {
	w := wallet.NewEphemeralWallet()
	acc, err := w.AddNewAccount(rng)
	if err != nil {
		panic(err)
	}
	return w, acc
}

// RandAddress returns a random address.
func RandAddress(rng *mathrand.Rand) common.Address {
	var a common.Address
	rng.Read(a[:])
	return a
}
