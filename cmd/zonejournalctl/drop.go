package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete every changeset in a zone's journal, leaving it open and empty",
	RunE:  runDrop,
}

func init() {
	dropCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
}

func runDrop(cmd *cobra.Command, args []string) error {
	skipConfirm, _ := cmd.Flags().GetBool("yes")
	zone, _ := cmd.Flags().GetString("zone")
	if !skipConfirm {
		fmt.Printf("This permanently deletes all changesets for zone %q. Continue? [y/N] ", zone)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("aborted")
			return nil
		}
	}

	h, err := openJournal(cmd)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer h.Close()

	if err := h.Drop(); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	fmt.Println("drop: ok")
	return nil
}
