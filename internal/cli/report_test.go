package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/grainrank/internal/errs"
	"github.com/roach88/grainrank/internal/report"
)

// priorSnapshot has alice at 20 and bob at 60 in total.
const priorSnapshot = `{"boundaries":[0,100],"edges":[],"participants":[` +
	`{"cred":["10","10"],"description":"Alice","id":"alice"},` +
	`{"cred":["30","30"],"description":"Bob","id":"bob"}],"version":1}`

func TestReportMissingFlag(t *testing.T) {
	_, err := execute(NewReportCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestReportSummary(t *testing.T) {
	cred := writeFile(t, t.TempDir(), "cred.json", credSnapshot)

	out, err := execute(NewReportCommand(&RootOptions{Format: "text"}), "--cred", cred)
	require.NoError(t, err)
	assert.Equal(t, "# Top Participants By Cred\n\n"+
		"| Description | Cred | % |\n"+
		"| --- | --- | --- |\n"+
		"| Alice | 40.0 | 57.1% |\n"+
		"| Bob | 30.0 | 42.9% |\n", out)
}

func TestReportTop(t *testing.T) {
	cred := writeFile(t, t.TempDir(), "cred.json", credSnapshot)

	out, err := execute(NewReportCommand(&RootOptions{Format: "json"}), "--cred", cred, "--top", "1")
	require.NoError(t, err)

	var resp struct {
		Data report.SummaryReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 70.0, resp.Data.TotalCred)
	require.Len(t, resp.Data.Rows, 1)
	assert.Equal(t, "alice", resp.Data.Rows[0].ID)
}

func TestReportDiff(t *testing.T) {
	dir := t.TempDir()
	cred := writeFile(t, dir, "cred.json", credSnapshot)
	prior := writeFile(t, dir, "prior.json", priorSnapshot)

	out, err := execute(NewReportCommand(&RootOptions{Format: "text"}), "--cred", cred, "--prior", prior)
	require.NoError(t, err)
	assert.Contains(t, out, "# Top Participants By New Cred")
	assert.Contains(t, out, "| Alice | 20.0 | 40.0 | +100.0% |")
	assert.Contains(t, out, "| Bob | 60.0 | 30.0 | -50.0% |")
}

func TestReportDiffStalePrior(t *testing.T) {
	dir := t.TempDir()
	// The prior snapshot lacks bob.
	cred := writeFile(t, dir, "cred.json", credSnapshot)
	prior := writeFile(t, dir, "prior.json", `{"boundaries":[0],"edges":[],"participants":[`+
		`{"cred":["5"],"description":"Alice","id":"alice"}],"version":1}`)

	_, err := execute(NewReportCommand(&RootOptions{Format: "text"}), "--cred", cred, "--prior", prior)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, errs.IsLedgerMismatch(err))
}

func TestReportBadSnapshot(t *testing.T) {
	cred := writeFile(t, t.TempDir(), "cred.json", `{"version":2}`)

	_, err := execute(NewReportCommand(&RootOptions{Format: "text"}), "--cred", cred)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
