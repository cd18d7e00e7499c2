// farmcheck: farm database status reporter.
//
// Checks that the farm tables (cattle, horses, health_records, documents,
// calendar_events) exist, counts their rows, and lists the storage
// buckets. The report is available from the command line, as an MCP
// server for AI tools, and over HTTP.
//
// Usage:
//
//	farmcheck report   # Print the diagnostic report
//	farmcheck serve    # Start MCP server (stdio transport)
//	farmcheck http     # Serve /status over HTTP
//	farmcheck update   # Update to the latest version
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// exitError ends the process with code and no further output.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
