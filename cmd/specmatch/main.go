// SpecMatch - spectral library search and similarity scoring
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/SpecMatch/cmd/specmatch/cmd"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	if err := cmd.Execute(version); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
