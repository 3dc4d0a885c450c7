// Command riti runs the proof-of-task ledger and token marketplace.
package main

import (
	"os"

	"github.com/riti-network/riti/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
