// memcore is an agent-facing memory store exposed over MCP stdio.
package main

import (
	"os"

	"github.com/substratelabs/memcore/cmd/memcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
