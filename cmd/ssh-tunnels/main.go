// Package main is the entry point for the ssh-tunnels binary.
//
// ssh-tunnels manages named SSH tunnels through the ssh client's control
// sockets. It combines an interactive list (built with Bubble Tea) and a
// CLI (built with Cobra).
//
// When invoked without arguments, it launches the interactive list.
// When invoked with subcommands (e.g. "list", "run", "kill"), it runs the
// corresponding operation and exits.
//
// Usage:
//
//	ssh-tunnels              # launch the interactive list
//	ssh-tunnels list         # print configured tunnels and their state
//	ssh-tunnels run db       # start the multiplexing master for "db"
//
// The CLI is constructed in internal/cli and the list in internal/ui.
// This file simply wires them together and handles top-level error
// reporting.
package main

import (
	"fmt"
	"os"

	"github.com/death/ssh-tunnels/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
