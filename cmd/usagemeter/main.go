package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tnunamak/usagemeter/internal/cli"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// exitCode carries a non-zero process exit code out of a command.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func run(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		var code exitCode
		if errors.As(err, &code) {
			return int(code)
		}
		fmt.Fprintf(stderr, "usagemeter: %v\n", err)
		return cli.ExitSetup
	}
	return cli.ExitOK
}

// codeErr turns a cli exit code into a command error.
func codeErr(code int) error {
	if code == cli.ExitOK {
		return nil
	}
	return exitCode(code)
}
