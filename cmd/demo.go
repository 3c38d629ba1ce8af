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
	"context"
	"fmt"
	"io"
	"math/big"
	"net"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	pchannel "perun.network/go-perun/channel"
	"perun.network/go-perun/log"

	"perun.network/perun-assetholder/channel"
	"perun.network/perun-assetholder/client"
	"perun.network/perun-assetholder/payment"
	"perun.network/perun-assetholder/rpc"
	"perun.network/perun-assetholder/util"
)

const keyDeposit = "deposit"

type demoConfiguration struct {
	Base    *baseConfiguration
	Ledger  ledgerConfiguration
	Listen  string
	Deposit int64
}

func newDemoCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &demoConfiguration{Base: baseConfig}
	var cmd = &cobra.Command{
		Use:   "demo",
		Short: "Runs a payment channel between two parties against a local asset holder",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), config, cmd.OutOrStdout())
		},
	}
	config.Ledger.addFlags(cmd)
	cmd.Flags().StringVar(&config.Listen, keyListen, "localhost:0", "address of the REST API used for withdrawals")
	cmd.Flags().Int64Var(&config.Deposit, keyDeposit, 100, "amount each party deposits into the channel")
	return cmd
}

func runDemo(ctx context.Context, config *demoConfiguration, out io.Writer) error {
	if config.Deposit <= 0 {
		return fmt.Errorf("deposit must be positive, got %d", config.Deposit)
	}
	rng := util.NewRand()
	adjAddr := util.RandAddress(rng)
	l, err := newLedger(&config.Ledger, &adjAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.holder.Close(); err != nil {
			log.Errorf("Closing asset holder: %v", err)
		}
	}()
	adjAddr = l.holder.Adjudicator()

	ln, err := net.Listen("tcp", config.Listen)
	if err != nil {
		return err
	}
	srv := rpc.NewRESTServer(config.Listen, rpc.DefaultMaxBodySize, log.Default(), rpc.AssetHolderEndpoints(l.holder, log.Default()))
	srvCtx, stop := context.WithCancel(ctx)
	srvDone := make(chan error, 1)
	go func() { srvDone <- serveUntilDone(srvCtx, srv, ln) }()
	defer func() {
		stop()
		if err := <-srvDone; err != nil {
			log.Errorf("Serving asset holder API: %v", err)
		}
	}()

	rest, err := client.New("http://" + ln.Addr().String())
	if err != nil {
		return err
	}

	deposit := big.NewInt(config.Deposit)
	parties := make([]*payment.PaymentClient, 2)
	funders := make([]pchannel.Funder, 2)
	parts := make([]common.Address, 2)
	for i := range parties {
		_, acc := util.MakeRandPerunWallet(rng)
		if err := l.backend.Mint(acc.Address(), deposit); err != nil {
			return err
		}
		if l.token != nil {
			if err := l.token.Approve(acc.Address(), l.token.Custody(), deposit); err != nil {
				return err
			}
		}
		parties[i] = payment.NewPaymentClient(acc, l.holder, l.asset, rest)
		funders[i] = parties[i].Funder()
		parts[i] = acc.Address()
	}
	alice, bob := parties[0], parties[1]
	fmt.Fprintf(out, "alice: %v\nbob:   %v\n", alice.Address().Hex(), bob.Address().Hex())

	ch, err := payment.NewPaymentChannel(rng, l.asset, parts, []*big.Int{deposit, deposit})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "channel: 0x%x\n", ch.ID())
	if err := ch.Fund(ctx, funders); err != nil {
		return fmt.Errorf("funding channel: %w", err)
	}

	if err := ch.SendPayment(0, big.NewInt(10)); err != nil {
		return err
	}
	if err := ch.SendPayment(1, big.NewInt(2)); err != nil {
		return err
	}

	adj := channel.NewAdjudicator(l.holder, l.asset, adjAddr)
	sub, err := adj.Subscribe(ctx, ch.ID())
	if err != nil {
		return err
	}
	defer sub.Close() //nolint:errcheck
	if err := ch.Settle(ctx, adj); err != nil {
		return fmt.Errorf("settling channel: %w", err)
	}
	if ev := sub.Next(); ev == nil {
		return fmt.Errorf("waiting for conclusion: %v", sub.Err())
	}

	for i, p := range parties {
		amount, err := p.Withdraw(ctx, ch.ID(), p.Address())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "withdrawn by party %d: %v\n", i, amount)
	}

	evs, err := rest.Events(ctx, 0)
	if err != nil {
		return err
	}
	for _, ev := range evs {
		e, err := ev.Event()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "event %d: %v\n", ev.Index, e)
	}
	fmt.Fprintf(out, "balances: alice %v, bob %v\n", l.backend.BalanceOf(alice.Address()), l.backend.BalanceOf(bob.Address()))
	return nil
}
