// Package main provides the cashflow CLI: order, emit, validate and run
// flow graph documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
)

// Version information set during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run dispatches args[0] to a command.
func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	if len(args) == 0 {
		usage(stderr)
		return &ExitError{Code: 2}
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version":
		fmt.Fprintf(stdout, "cashflow %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
		return nil
	case "order":
		return orderCmd(stdout, stderr, rest)
	case "validate":
		return validateCmd(stdout, stderr, rest)
	case "emit":
		return emitCmd(ctx, stdout, stderr, rest)
	case "run":
		return runCmd(ctx, stdout, stderr, rest)
	case "credential":
		return credentialCmd(ctx, stdout, stderr, rest)
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return nil
	}
	usage(stderr)
	return &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", cmd)}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `cashflow - visual blockchain flows as code or live runs

Usage:
  cashflow <command> [options]

Commands:
  version      print build information
  order        print the execution order of a graph
  validate     check a graph document
  emit         generate a JavaScript program from a graph
  run          execute a Bitcoin Cash flow and print its log
  credential   save the default wallet used by credential-less wallet nodes

Graph documents are JSON, YAML or MessagePack, chosen by file extension.
Configuration comes from CASHFLOW_* and ALGOD_* variables or a .env file.
`)
}
