package report

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/grainrank/internal/credrank"
	"github.com/roach88/grainrank/internal/errs"
)

func snapshot(t *testing.T, participants string) *credrank.CredGraph {
	t.Helper()
	cg, err := credrank.Unmarshal([]byte(`{"boundaries":[0,100],"edges":[],"participants":[` + participants + `],"version":1}`))
	require.NoError(t, err)
	return cg
}

// current totals: alice 40, bob 30, carol 10.
func current(t *testing.T) *credrank.CredGraph {
	return snapshot(t,
		`{"cred":["10","30"],"description":"Alice","id":"alice"},`+
			`{"cred":["5","5"],"description":"Carol","id":"carol"},`+
			`{"cred":["20","10"],"description":"Bob","id":"bob"}`)
}

// prior totals: alice 20, bob 60, carol 0.
func prior(t *testing.T) *credrank.CredGraph {
	return snapshot(t,
		`{"cred":["10","10"],"description":"Alice","id":"alice"},`+
			`{"cred":["0","0"],"description":"Carol","id":"carol"},`+
			`{"cred":["30","30"],"description":"Bob","id":"bob"}`)
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestSummary(t *testing.T) {
	r := Summary(current(t), 0)
	assert.Equal(t, 80.0, r.TotalCred)
	require.Len(t, r.Rows, 3)
	assert.Equal(t, Row{ID: "alice", Description: "Alice", Cred: 40, Percent: 50}, r.Rows[0])
	assert.Equal(t, "bob", r.Rows[1].ID)
	assert.Equal(t, "carol", r.Rows[2].ID)

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, r))
	newGoldie(t).Assert(t, "summary", buf.Bytes())
}

func TestSummary_TopN(t *testing.T) {
	r := Summary(current(t), 2)
	require.Len(t, r.Rows, 2)
	assert.Equal(t, "bob", r.Rows[1].ID)
	assert.Equal(t, 80.0, r.TotalCred, "share is of all cred, not just the rows shown")
}

func TestSummary_TiesByID(t *testing.T) {
	cg := snapshot(t,
		`{"cred":["1","1"],"description":"Zed","id":"z"},`+
			`{"cred":["1","1"],"description":"Amy","id":"a"}`)
	r := Summary(cg, 0)
	assert.Equal(t, "a", r.Rows[0].ID)
	assert.Equal(t, "z", r.Rows[1].ID)
}

func TestSummary_NoCred(t *testing.T) {
	cg := snapshot(t, `{"cred":["0","0"],"description":"Idle","id":"idle"}`)
	r := Summary(cg, 0)
	assert.Equal(t, 0.0, r.Rows[0].Percent)
}

func TestDiff(t *testing.T) {
	r, err := Diff(current(t), prior(t), 0)
	require.NoError(t, err)
	require.Len(t, r.Rows, 3)
	assert.Equal(t, DiffRow{ID: "alice", Description: "Alice", PriorCred: 20, NewCred: 40, Change: "+100.0%"}, r.Rows[0])

	var buf bytes.Buffer
	require.NoError(t, WriteDiff(&buf, r))
	newGoldie(t).Assert(t, "diff", buf.Bytes())
}

func TestDiff_StalePrior(t *testing.T) {
	stale := snapshot(t, `{"cred":["10","10"],"description":"Alice","id":"alice"}`)
	_, err := Diff(current(t), stale, 0)
	require.Error(t, err)
	assert.True(t, errs.IsLedgerMismatch(err))
	assert.Contains(t, err.Error(), "bob")
}

func TestFormatChange(t *testing.T) {
	tests := []struct {
		prior, cur float64
		want       string
	}{
		{100, 150, "+50.0%"},
		{100, 100, "0.0%"},
		{100, 25, "-75.0%"},
		{1, 101, "+10000.0%"},
		{1, 102, ">10,000%"},
		{0, 5, ">10,000%"},
		{0, 0, "0.0%"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatChange(tt.prior, tt.cur), "%v -> %v", tt.prior, tt.cur)
	}
}

func TestWriteSummary_EscapesPipes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, SummaryReport{Rows: []Row{{Description: "a|b", Cred: 1, Percent: 100}}}))
	assert.Contains(t, buf.String(), `| a\|b | 1.0 | 100.0% |`)
}
