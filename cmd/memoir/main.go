// Command memoir records a person's answers and talks back in their voice.
package main

import (
	"os"

	"github.com/custodia-labs/memoir/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
