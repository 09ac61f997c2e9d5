// Command grainrank computes cred for a contribution graph and distributes
// grain in proportion to it.
package main

import (
	"os"

	"github.com/roach88/grainrank/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
