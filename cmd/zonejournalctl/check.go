package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/outpostdns/outpost/pkg/changeset"
	"github.com/outpostdns/outpost/pkg/journal"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Open a zone's journal and validate its invariants",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().Bool("verbose", false, "Log each changeset while walking the chain")
}

func openJournal(cmd *cobra.Command) (*journal.Handle, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	zone, _ := cmd.Flags().GetString("zone")
	fslimit, _ := cmd.Flags().GetInt64("fslimit")
	return journal.Open(dataDir, zone, fslimit, changeset.Codec{}, nil)
}

func runCheck(cmd *cobra.Command, args []string) error {
	h, err := openJournal(cmd)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer h.Close()

	verbose, _ := cmd.Flags().GetBool("verbose")
	verbosity := journal.CheckWarn
	if verbose {
		verbosity = journal.CheckInfo
	}

	report, err := h.Check(verbosity)
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}

	fmt.Printf("changesets: %d, bytes: %d, inconsistencies: %d\n",
		report.ChangesetCount, report.TotalBytes, len(report.Inconsistencies))
	for _, inc := range report.Inconsistencies {
		fmt.Printf("  serial=%d chunk=%d: %s\n", inc.Serial, inc.ChunkIndex, inc.Message)
	}
	if !report.OK() {
		return fmt.Errorf("journal failed invariant check")
	}
	return nil
}
