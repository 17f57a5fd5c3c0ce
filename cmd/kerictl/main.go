// Command kerictl is the CLI surface of spec.md §6: a single command
// accepting --name, --alias, --base, --passcode, and --text (literal or
// @file), wiring Parser -> Kevery -> Baser against a habitat's database.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Arsh-Sandhu/kerigo/cmd/kerictl/cmdutil"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	root := cmdutil.NewRootCmd(logger.Sugar())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cmdutil.ExitCodeFor(err))
	}
}
