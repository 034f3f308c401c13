// Command mcp-stdio-server serves the bundled toolbox over stdin/stdout.
package main

import (
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
