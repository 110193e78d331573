package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [SESSION]",
	Short: "Show archived transcripts",
	Long: `List archived sessions, most recent first, or print the transcript of one.

Transcripts are archived only when transcript.archive is true:
  docqa settings set transcript.archive true`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if transcriptArchive == nil {
		return errors.New("no transcript archive; enable it with 'docqa settings set transcript.archive true'")
	}
	ctx := commandContext(cmd)

	if len(args) == 0 {
		sessions, err := transcriptArchive.Sessions(ctx)
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		if len(sessions) == 0 {
			cmd.Println("No archived sessions.")
			return nil
		}
		for _, id := range sessions {
			cmd.Println(id)
		}
		return nil
	}

	entries, err := transcriptArchive.List(ctx, args[0])
	if err != nil {
		return fmt.Errorf("reading session %s: %w", args[0], err)
	}
	if len(entries) == 0 {
		cmd.Printf("No entries for session %s.\n", args[0])
		return nil
	}
	out := cmd.OutOrStdout()
	for _, e := range entries {
		fmt.Fprintf(out, "[%s]\n", e.AskedAt.Local().Format("2006-01-02 15:04:05"))
		printEntry(out, e)
	}
	return nil
}
