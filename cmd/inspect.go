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
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/spf13/cobra"
	pchannel "perun.network/go-perun/channel"

	"perun.network/perun-assetholder/store"
	"perun.network/perun-assetholder/wire"
)

func newInspectCmd(baseConfig *baseConfiguration) *cobra.Command {
	var dbFile string
	var cmd = &cobra.Command{
		Use:   "inspect",
		Short: "Lists the holdings and outcomes of an asset holder database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(dbFile, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&dbFile, keyDB, "", "bolt database file")
	return cmd
}

func runInspect(dbFile string, out io.Writer) (err error) {
	if dbFile == "" {
		return fmt.Errorf("flag %q is required", keyDB)
	}
	db, err := store.OpenBolt(dbFile)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, db.Close()) }()

	if err := db.ForEachHolding(func(fid wire.FundingID, amount *big.Int) error {
		_, err := fmt.Fprintf(out, "holding %v %v\n", fid, amount)
		return err
	}); err != nil {
		return err
	}
	return db.ForEachOutcome(func(cid pchannel.ID, o *store.Outcome) error {
		if _, err := fmt.Fprintf(out, "outcome 0x%x\n", cid); err != nil {
			return err
		}
		for i, p := range o.Participants {
			if _, err := fmt.Fprintf(out, "  %v balance %v payout %v\n", p.Hex(), o.Balances[i], o.Payouts[i]); err != nil {
				return err
			}
		}
		return nil
	})
}
