package cmd

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/Rorical/c60chat/internal/app"
)

var wipeYes bool

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Erase history, persona flag and rate-limit data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !wipeYes {
			prompt := promptui.Prompt{
				Label:     "Wipe memory",
				IsConfirm: true,
			}
			if _, err := prompt.Run(); err != nil {
				fmt.Println("Wipe cancelled")
				return nil
			}
		}

		session, err := app.OpenSession(rootOpts)
		if err != nil {
			return err
		}
		defer session.Close()

		if err := session.Service.Wipe(context.Background()); err != nil {
			return fmt.Errorf("wipe failed: %w", err)
		}
		fmt.Println("Memory wiped.")
		return nil
	},
}

func init() {
	wipeCmd.Flags().BoolVarP(&wipeYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(wipeCmd)
}
