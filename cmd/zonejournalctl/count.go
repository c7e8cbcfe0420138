package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Report the number of changesets and the serial range held by a zone's journal",
	RunE:  runCount,
}

func runCount(cmd *cobra.Command, args []string) error {
	h, err := openJournal(cmd)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer h.Close()

	n, err := h.Count()
	if err != nil {
		return fmt.Errorf("count: %w", err)
	}

	empty, first, last, err := h.SerialRange()
	if err != nil {
		return fmt.Errorf("serial range: %w", err)
	}

	if empty {
		fmt.Printf("changesets: 0 (empty)\n")
		return nil
	}
	fmt.Printf("changesets: %d, serial range: [%d, %d]\n", n, first, last)
	return nil
}
