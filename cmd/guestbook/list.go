package main

import (
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Show approved guestbook messages, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}
		entries, err := api.List(cmd.Context())
		if err != nil {
			printError(cmd.ErrOrStderr(), err)
			return err
		}
		printEntries(cmd.OutOrStdout(), entries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
