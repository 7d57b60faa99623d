package config

import (
	"flag"
	"os"

	"github.com/mlevitan/clinisync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-f string   path of the local database file
//	-r string   remote store DSN (empty disables sync)
//	-n int      push retry attempts when the remote is unavailable
//
// The function filters os.Args to only the flags it knows about, using
// flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-f", "-r", "-n"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabasePath, "f", cfg.DatabasePath, "local database file")
	fs.StringVar(&cfg.RemoteDSN, "r", cfg.RemoteDSN, "remote store DSN")
	retries := fs.Uint64("n", cfg.SyncRetryAttempts, "push retry attempts")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SyncRetryAttempts = *retries
}
