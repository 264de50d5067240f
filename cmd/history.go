package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Rorical/c60chat/internal/app"
	"github.com/Rorical/c60chat/internal/core"
	"github.com/Rorical/c60chat/internal/models"
)

var historyJSON bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the stored conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := app.OpenSession(rootOpts)
		if err != nil {
			return err
		}
		defer session.Close()

		out := cmd.OutOrStdout()
		snap := session.Service.Snapshot()
		if historyJSON {
			// Same shape as the stored history entry.
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(core.StoredMessages(snap.Messages))
		}

		if len(snap.Messages) == 0 {
			fmt.Fprintln(out, "No messages stored.")
			return nil
		}
		for _, m := range snap.Messages {
			who := "C60"
			if m.Role == models.User {
				who = "YOU"
			}
			fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp.Local().Format("2006-01-02 15:04"), who, m.Content)
		}
		limit := session.Personas.Limit(snap.Elevated)
		sent := session.Service.SentInWindow()
		fmt.Fprintf(out, "\n%d/%d messages used in the current window", sent, limit)
		if snap.Elevated {
			fmt.Fprint(out, " (elevated)")
		}
		fmt.Fprintln(out)
		return nil
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print messages as JSON")
	rootCmd.AddCommand(historyCmd)
}
