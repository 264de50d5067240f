package cmd

import (
	"github.com/spf13/cobra"
)

var useCmd = &cobra.Command{
	Use:   "use [profile-name]",
	Short: "Switch to a profile and start chatting",
	Long:  `Make the specified profile active and immediately start the chat application.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := switchProfile(args[0]); err != nil {
			return err
		}
		opts := rootOpts
		opts.Profile = ""
		return runChat(opts)
	},
}

func init() {
	rootCmd.AddCommand(useCmd)
}
