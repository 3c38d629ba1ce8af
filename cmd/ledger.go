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
package cmd

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"perun.network/perun-assetholder/asset"
	"perun.network/perun-assetholder/channel"
	"perun.network/perun-assetholder/store"
)

const (
	keyAdjudicator = "adjudicator"
	keyBackend     = "backend"
	keyCustody     = "custody"
	keyToken       = "token"
	keyDB          = "db"
	keyListen      = "listen"

	backendNative = "native"
	backendToken  = "token"
)

var (
	defaultCustody = common.HexToAddress("0x00000000000000000000000000000000a55e7401")
	defaultToken   = common.HexToAddress("0x0000000000000000000000000000000000070ce0")
)

type (
	ledgerConfiguration struct {
		Adjudicator string
		Backend     string
		Custody     string
		Token       string
		DB          string
	}

	// assetLedger is the balance sheet of a transfer backend.
	assetLedger interface {
		channel.TransferBackend
		Mint(to common.Address, amount *big.Int) error
		BalanceOf(addr common.Address) *big.Int
	}

	ledger struct {
		holder  *channel.AssetHolder
		asset   *channel.Asset
		backend assetLedger
		token   *asset.Token
	}
)

func (c *ledgerConfiguration) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.Adjudicator, keyAdjudicator, "", "address of the adjudicator allowed to settle channels")
	cmd.Flags().StringVar(&c.Backend, keyBackend, backendNative, "transfer backend, one of: native, token")
	cmd.Flags().StringVar(&c.Custody, keyCustody, defaultCustody.Hex(), "address holding the deposited funds")
	cmd.Flags().StringVar(&c.Token, keyToken, defaultToken.Hex(), "token address of the token backend")
	cmd.Flags().StringVar(&c.DB, keyDB, "", "bolt database file, state is kept in memory when not set")
}

func parseAddress(name, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid %s address %q", name, s)
	}
	return common.HexToAddress(s), nil
}

func openStore(path string) (store.Store, error) {
	if path == "" {
		return store.NewMemory(), nil
	}
	s, err := store.OpenBolt(path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	return s, nil
}

// newLedger creates the asset holder described by c. adjudicator is used
// when c.Adjudicator is not set.
func newLedger(c *ledgerConfiguration, adjudicator *common.Address) (*ledger, error) {
	if c.Adjudicator != "" {
		adj, err := parseAddress(keyAdjudicator, c.Adjudicator)
		if err != nil {
			return nil, err
		}
		adjudicator = &adj
	}
	if adjudicator == nil {
		return nil, fmt.Errorf("flag %q is required", keyAdjudicator)
	}
	custody, err := parseAddress(keyCustody, c.Custody)
	if err != nil {
		return nil, err
	}

	l := &ledger{}
	switch c.Backend {
	case backendNative:
		l.backend = asset.NewNative(custody)
		l.asset = channel.NewNativeAsset(custody)
	case backendToken:
		tokenAddr, err := parseAddress(keyToken, c.Token)
		if err != nil {
			return nil, err
		}
		l.token = asset.NewToken(tokenAddr, custody)
		l.backend = l.token
		l.asset = channel.NewTokenAsset(custody, tokenAddr)
	default:
		return nil, fmt.Errorf("unknown backend %q", c.Backend)
	}

	s, err := openStore(c.DB)
	if err != nil {
		return nil, err
	}
	l.holder = channel.NewAssetHolder(*adjudicator, l.backend, channel.WithStore(s))
	return l, nil
}
