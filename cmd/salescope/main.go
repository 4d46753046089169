package main

import (
	"fmt"
	"os"

	"github.com/roach88/salescope/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands report their own failures through the formatter;
		// anything surfacing here still deserves one line on stderr.
		fmt.Fprintf(os.Stderr, "salescope: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
