package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/grainrank/internal/distribution"
	"github.com/roach88/grainrank/internal/errs"
	"github.com/roach88/grainrank/internal/ledger"
)

var distributeNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type distributeFixture struct {
	ledger, cred, config string
}

func newDistributeFixture(t *testing.T, config string) distributeFixture {
	t.Helper()
	dir := t.TempDir()
	return distributeFixture{
		ledger: filepath.Join(dir, "ledger.db"),
		cred:   writeFile(t, dir, "credGraph.json", credSnapshot),
		config: writeFile(t, dir, "grainrank.yaml", config),
	}
}

func (f distributeFixture) args() []string {
	return []string{"--ledger", f.ledger, "--cred", f.cred, "--config", f.config}
}

func distributeCommand(format string, ids ...string) *DistributeOptions {
	return &DistributeOptions{
		RootOptions: &RootOptions{Format: format},
		IDs:         distribution.NewFixedGenerator(ids...),
		Now:         func() time.Time { return distributeNow },
	}
}

func TestDistributeMissingFlags(t *testing.T) {
	_, err := execute(NewDistributeCommand(&RootOptions{Format: "text"}), "--ledger", "l.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestDistributeRecordsReceipts(t *testing.T) {
	f := newDistributeFixture(t, cycleConfig)

	out, err := execute(newDistributeCommand(distributeCommand("text", "d1", "a1")), f.args()...)
	require.NoError(t, err)
	assert.Contains(t, out, "# Distribution d1")
	assert.Contains(t, out, "Created 2026-03-01T12:00:00Z, 1 grain in total.")
	assert.Contains(t, out, "## IMMEDIATE allocation a1 (budget 1)")
	assert.Contains(t, out, "| alice | 0.750 |")
	assert.Contains(t, out, "| bob | 0.250 |")

	l, err := ledger.Open(f.ledger)
	require.NoError(t, err)
	defer l.Close()
	ds, err := l.Distributions(context.Background())
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "d1", ds[0].ID)
	assert.NotEmpty(t, ds[0].CredDigest)
}

func TestDistributeJSONOutput(t *testing.T) {
	f := newDistributeFixture(t, cycleConfig)

	out, err := execute(newDistributeCommand(distributeCommand("json", "d1", "a1")), f.args()...)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   distributionView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "d1", resp.Data.ID)
	assert.Equal(t, "1", resp.Data.Total)
	require.Len(t, resp.Data.Allocations, 1)
	receipts := resp.Data.Allocations[0].Receipts
	require.Len(t, receipts, 2)
	assert.Equal(t, "750000000000000000", receipts[0].Amount.String())
	assert.Equal(t, "250000000000000000", receipts[1].Amount.String())
}

func TestDistributeFailureLeavesLedgerUntouched(t *testing.T) {
	f := newDistributeFixture(t, cycleConfig+`  - type: SPECIAL
    budget: "1"
    recipient: mallory
`)

	_, err := execute(newDistributeCommand(distributeCommand("text", "d1", "a1", "a2")), f.args()...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, errs.IsInvalidConfiguration(err))

	l, err := ledger.Open(f.ledger)
	require.NoError(t, err)
	defer l.Close()
	ds, err := l.Distributions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ds)
}

func TestDistributeNoPolicies(t *testing.T) {
	f := newDistributeFixture(t, "currency: \"evm:1:0x1\"\npolicies: []\n")

	_, err := execute(newDistributeCommand(distributeCommand("text", "d1")), f.args()...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.True(t, errs.IsInvalidConfiguration(err))
}

func TestDistributeUsesPaidHistory(t *testing.T) {
	f := newDistributeFixture(t, cycleConfig)
	_, err := execute(newDistributeCommand(distributeCommand("text", "d1", "a1")), f.args()...)
	require.NoError(t, err)

	// Lifetime cred is alice 40, bob 30 and the first run paid alice 0.75,
	// bob 0.25. Against 2 grain paid in total, bob is further behind.
	balanced := writeFile(t, t.TempDir(), "balanced.yaml", `currency: "evm:100:0x0000000000000000000000000000000000000000"
policies:
  - type: BALANCED
    budget: "1"
`)
	out, err := execute(newDistributeCommand(distributeCommand("json", "d2", "a2")),
		"--ledger", f.ledger, "--cred", f.cred, "--config", balanced)
	require.NoError(t, err)

	var resp struct {
		Data distributionView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	receipts := resp.Data.Allocations[0].Receipts
	assert.True(t, receipts[0].Amount.Lt(receipts[1].Amount))
}
