package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flushMarkCmd = &cobra.Command{
	Use:   "flush-mark",
	Short: "Mark everything currently in the journal as flushed to the zone file",
	Long: `flush-mark tells the journal that an external process has just
written the zone file up through the current last serial, advancing
last_flushed so the next reclamation or merge pass may free that space.

It does not itself write anything to a zone file; run it immediately after
doing so.`,
	RunE: runFlushMark,
}

func runFlushMark(cmd *cobra.Command, args []string) error {
	h, err := openJournal(cmd)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer h.Close()

	if err := h.FlushMark(); err != nil {
		return fmt.Errorf("flush-mark: %w", err)
	}
	fmt.Println("flush-mark: ok")
	return nil
}
