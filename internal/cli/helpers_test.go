package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// cycleGraph is a two-participant cycle; every period splits cred evenly.
const cycleGraph = `{
  "nodes": [
    {"id": "alice", "description": "Alice", "participant": true},
    {"id": "bob", "description": "Bob", "participant": true}
  ],
  "edges": [
    {"src": "alice", "dst": "bob", "direction": "forward", "weight": 1},
    {"src": "bob", "dst": "alice", "direction": "forward", "weight": 1}
  ]
}`

const cycleConfig = `currency: "evm:100:0x0000000000000000000000000000000000000000"
periods:
  boundaries: [0]
policies:
  - type: IMMEDIATE
    budget: "1"
`

// credSnapshot has alice at [10, 30] and bob at [20, 10].
const credSnapshot = `{"boundaries":[0,100],"edges":[],"participants":[` +
	`{"cred":["10","30"],"description":"Alice","id":"alice"},` +
	`{"cred":["20","10"],"description":"Bob","id":"bob"}],"version":1}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs cmd with args and returns its stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
