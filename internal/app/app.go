package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "extract":
		return runExtract(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "textify":
		return runTextify(args[1:])
	case "persist":
		return runPersist(args[1:])
	case "health":
		return runHealth(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "stallednews CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  stallednews <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  extract   Build the project timeline from an evidence corpus")
	fmt.Fprintln(os.Stderr, "  validate  Check a corpus against its schema and a run's artifacts against their guarantees")
	fmt.Fprintln(os.Stderr, "  textify   Render raw HTML sources of a corpus to plain text")
	fmt.Fprintln(os.Stderr, "  persist   Store a run's events in Postgres")
	fmt.Fprintln(os.Stderr, "  health    Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  serve     Start Echo API server over a runs directory")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"stallednews <command> -h\" for command-specific flags.")
}
