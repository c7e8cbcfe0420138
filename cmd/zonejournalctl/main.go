// Command zonejournalctl administers a zone's on-disk incremental-update
// journal directly, without going through a running DNS server. It is
// deliberately narrow: it never prints journal contents (that stays an
// internal implementation detail), it only opens, checks, counts, marks
// flushes, and drops.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/outpostdns/outpost/pkg/log"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "zonejournalctl",
	Short:   "Administer an outpost zone's incremental-update journal",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("zonejournalctl version %s (%s)\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("data-dir", ".", "Directory holding the zone's journal.db")
	rootCmd.PersistentFlags().String("zone", "", "Zone name (required)")
	rootCmd.PersistentFlags().Int64("fslimit", 8<<20, "Journal size budget in bytes, used when opening")
	_ = rootCmd.MarkPersistentFlagRequired("zone")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(flushMarkCmd)
	rootCmd.AddCommand(dropCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}
