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
	"errors"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	perrors "github.com/pkg/errors"
	pwallet "perun.network/go-perun/wallet"
)

const (
	// SignatureLength is the length of a signature in bytes: r ‖ s ‖ v.
	SignatureLength = crypto.SignatureLength
	// RecoveryIDOffset is the position of v in a signature.
	RecoveryIDOffset = crypto.RecoveryIDOffset
)

// ErrInvalidSignature is returned for malformed signatures and for signatures
// that do not recover to a well-formed identity.
var ErrInvalidSignature = errors.New("invalid signature")

type backend struct{}

// Backend verifies Ethereum signed-message signatures.
var Backend = backend{}

// DecodeSig decodes a signature of length SignatureLength from the reader.
func (b backend) DecodeSig(reader io.Reader) (pwallet.Sig, error) {
	sig := make([]byte, SignatureLength)
	if _, err := io.ReadFull(reader, sig); err != nil {
		return nil, err
	}
	return sig, nil
}

// RecoverSigner returns the identity that signed digest. Only canonical
// signatures (v in {27, 28}, s in the lower half of the curve order) are
// accepted.
func (b backend) RecoverSigner(digest common.Hash, sig pwallet.Sig) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, perrors.WithMessagef(ErrInvalidSignature, "length %d, want %d", len(sig), SignatureLength)
	}
	v := sig[RecoveryIDOffset]
	if v != 27 && v != 28 {
		return common.Address{}, perrors.WithMessagef(ErrInvalidSignature, "recovery id %d", v)
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(v-27, r, s, true) {
		return common.Address{}, perrors.WithMessage(ErrInvalidSignature, "signature values out of range")
	}

	raw := make([]byte, SignatureLength)
	copy(raw, sig)
	raw[RecoveryIDOffset] = v - 27
	pub, err := crypto.SigToPub(accounts.TextHash(digest.Bytes()), raw)
	if err != nil {
		return common.Address{}, perrors.WithMessage(ErrInvalidSignature, err.Error())
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifySignature reports whether sig over digest was made by expected. A
// signature from another identity yields false without an error; an error is
// only returned if no identity can be recovered at all.
func (b backend) VerifySignature(digest common.Hash, sig pwallet.Sig, expected common.Address) (bool, error) {
	signer, err := b.RecoverSigner(digest, sig)
	if err != nil {
		return false, err
	}
	return signer == expected, nil
}

// RecoverSigner calls Backend.RecoverSigner.
func RecoverSigner(digest common.Hash, sig pwallet.Sig) (common.Address, error) {
	return Backend.RecoverSigner(digest, sig)
}

// VerifySignature calls Backend.VerifySignature.
func VerifySignature(digest common.Hash, sig pwallet.Sig, expected common.Address) (bool, error) {
	return Backend.VerifySignature(digest, sig, expected)
}
