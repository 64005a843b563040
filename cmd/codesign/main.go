package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	command := os.Args[1]

	// Dispatch to subcommand
	switch command {
	case "verify":
		runVerify(ctx, os.Args[2:])
	case "inspect":
		runInspect(ctx, os.Args[2:])
	case "policy":
		runPolicy(ctx, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`codesign - Verify code signatures with the operating system's trust subsystem

Usage:
  codesign <command> [options]

Commands:
  verify    Verify a file, bundle or process and evaluate a trust policy
  inspect   Print every field of the signer's leaf certificate
  policy    Validate or list trust policy files

Environment:
  CODESIGN_LOG_LEVEL  Default for --log-level
  CODESIGN_POLICY     Default for --policy

Use "codesign <command> --help" for more information about a command.`)
}
