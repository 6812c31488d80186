// Command intoto-verify verifies a software supply-chain layout
// against a directory of recorded links.
package main

import (
	"fmt"
	"os"

	"github.com/gzhole/intoto-verify/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
