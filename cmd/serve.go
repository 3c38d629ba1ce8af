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
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"perun.network/go-perun/log"

	"perun.network/perun-assetholder/rpc"
)

const keyMaxBodySize = "max-body-size"

type serveConfiguration struct {
	Base        *baseConfiguration
	Ledger      ledgerConfiguration
	Listen      string
	MaxBodySize int64
}

func newServeCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &serveConfiguration{Base: baseConfig}
	var cmd = &cobra.Command{
		Use:   "serve",
		Short: "Runs the asset holder and serves its REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), config)
		},
	}
	config.Ledger.addFlags(cmd)
	cmd.Flags().StringVar(&config.Listen, keyListen, "localhost:26866", "address of the REST API")
	cmd.Flags().Int64Var(&config.MaxBodySize, keyMaxBodySize, rpc.DefaultMaxBodySize, "maximum request body size in bytes")
	return cmd
}

func runServe(ctx context.Context, config *serveConfiguration) error {
	l, err := newLedger(&config.Ledger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.holder.Close(); err != nil {
			log.Errorf("Closing asset holder: %v", err)
		}
	}()

	ln, err := net.Listen("tcp", config.Listen)
	if err != nil {
		return err
	}
	srv := rpc.NewRESTServer(config.Listen, config.MaxBodySize, log.Default(), rpc.AssetHolderEndpoints(l.holder, log.Default()))
	return serveUntilDone(ctx, srv, ln)
}

// serveUntilDone serves on ln until ctx is done.
func serveUntilDone(ctx context.Context, srv *http.Server, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", ln.Addr().String()).Info("Serving asset holder API")
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
