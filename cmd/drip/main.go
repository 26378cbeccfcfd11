// Command drip is a terminal client for a streaming deep-agent backend.
//
// Usage:
//
//	drip [flags] [command] [args]
//
// Commands:
//
//	chat [-thread id]       Interactive TUI (default)
//	ask [-thread id] text   Stream one answer to stdout
//	threads                 List threads, most recent first
//	show [-raw] id          Print a thread
//	rename id title         Set a thread's title
//	rm id                   Delete a thread
//	prune                   Delete stored messages of unregistered threads
//	export id path          Write a thread to a JSON file
//	import path             Read a thread from a JSON file
//	health                  Check the agent server
//	config                  Print the effective configuration
//
// Flags:
//
//	-config string      Path to the TOML config file (default: <config dir>/drip/config.toml)
//	-backend string     Backend: agent, gemini
//	-url string         Agent server base URL
//	-model string       Model ID
//	-mode string        Backend mode
//	-thinking           Request reasoning output
//	-store string       Store driver: sqlite, file, memory
//	-store-path string  Store file or directory
//	-throttle duration  Minimum interval between streamed redraws
//	-log-level string   debug, info, warn, error
//	-log-format string  text, json
//
// Settings are read from the config file, then DRIP_* environment
// variables, then flags. GEMINI_API_KEY supplies the Gemini key.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Getenv, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "drip: %v\n", err)
		os.Exit(1)
	}
}
