// Command keywords renders, validates and tests declarative HTML templates.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/keywords/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	cmd := cli.NewRootCommand()
	err := cmd.Execute()
	if err == nil {
		return cli.ExitSuccess
	}
	// Commands report their own errors; only cobra's (unknown flags,
	// missing args) still need printing.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.GetExitCode(err)
}
