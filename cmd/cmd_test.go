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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, ctx context.Context, args string) (string, error) {
	t.Helper()
	app := New()
	out := new(bytes.Buffer)
	app.baseCmd.SetOut(out)
	app.baseCmd.SetArgs(strings.Split(args, " "))
	err := app.Execute(ctx)
	return out.String(), err
}

func TestDemoAndInspect(t *testing.T) {
	home := t.TempDir()
	db := filepath.Join(home, "holder.db")

	out, err := execute(t, context.Background(), "demo --home "+home+" --db "+db+" --listen localhost:0")
	require.NoError(t, err)
	require.Contains(t, out, "withdrawn by party 0: 92")
	require.Contains(t, out, "withdrawn by party 1: 108")
	require.Contains(t, out, "balances: alice 92, bob 108")
	require.Contains(t, out, "OutcomeSet(")
	require.Equal(t, 5, strings.Count(out, "event "))

	out, err = execute(t, context.Background(), "inspect --home "+home+" --db "+db)
	require.NoError(t, err)
	require.Contains(t, out, "outcome 0x")
	require.Contains(t, out, "balance 92 payout 92")
	require.Contains(t, out, "balance 108 payout 108")
	// Everything was withdrawn.
	require.NotContains(t, out, "holding ")
}

func TestDemo_ConfigFile(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, defaultConfigFile), []byte("backend=token\ndeposit=50\n"), 0600))

	out, err := execute(t, context.Background(), "demo --home "+home)
	require.NoError(t, err)
	require.Contains(t, out, "balances: alice 42, bob 58")
}

func TestDemo_EnvConfig(t *testing.T) {
	t.Setenv("PERUN_BACKEND", "bogus")
	_, err := execute(t, context.Background(), "demo --home "+t.TempDir())
	require.ErrorContains(t, err, `unknown backend "bogus"`)

	t.Setenv("PERUN_BACKEND", "native")
	t.Setenv("PERUN_LOG_LEVEL", "loud")
	_, err = execute(t, context.Background(), "demo --home "+t.TempDir())
	require.ErrorContains(t, err, "initializing logger")
}

func TestServe(t *testing.T) {
	home := t.TempDir()
	_, err := execute(t, context.Background(), "serve --home "+home+" --listen localhost:0")
	require.ErrorContains(t, err, `flag "adjudicator" is required`)

	_, err = execute(t, context.Background(), "serve --home "+home+" --listen localhost:0 --adjudicator nope")
	require.ErrorContains(t, err, "invalid adjudicator address")

	// A done context shuts the server down right away.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = execute(t, ctx, "serve --home "+home+" --listen localhost:0 --adjudicator 0x00000000000000000000000000000000000000ad --db "+filepath.Join(home, "serve.db"))
	require.NoError(t, err)
}

func TestInspect_MissingDB(t *testing.T) {
	_, err := execute(t, context.Background(), "inspect --home "+t.TempDir())
	require.ErrorContains(t, err, `flag "db" is required`)
}
