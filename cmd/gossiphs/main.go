// Command gossiphs builds a cross-file symbol relation graph for a git
// repository and answers queries against it, either one-shot on the CLI or
// over the HTTP query server.
package main

import (
	"os"

	"github.com/rs/zerolog"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
