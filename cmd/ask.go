package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Rorical/c60chat/internal/app"
	"github.com/Rorical/c60chat/internal/completion"
)

var askWithHistory bool

var askCmd = &cobra.Command{
	Use:   "ask [message...]",
	Short: "Ask one question and print the whole reply",
	Long: `Send a single message and print the reply once it is complete.
The stored conversation is not changed and the message does not count
against the rate limit. --with-history sends the stored conversation as
context.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := strings.Join(args, " ")

		session, err := app.OpenSession(rootOpts)
		if err != nil {
			return err
		}
		defer session.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		snap := session.Service.Snapshot()
		req := completion.Request{
			Input:    input,
			Elevated: snap.Elevated || session.Personas.Triggered(input),
		}
		if askWithHistory {
			req.History = snap.Messages
		}

		reply, err := session.Client.Complete(ctx, req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		displayResponse(reply)
		return nil
	},
}

// displayResponse renders markdown only when stdout is a terminal so piped
// output stays plain.
func displayResponse(response string) {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		fmt.Println(response)
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		fmt.Println(response)
		return
	}
	rendered, err := r.Render(response)
	if err != nil {
		fmt.Println(response)
		return
	}
	fmt.Print(rendered)
}

func init() {
	askCmd.Flags().BoolVar(&askWithHistory, "with-history", false, "send the stored conversation as context")
	rootCmd.AddCommand(askCmd)
}
