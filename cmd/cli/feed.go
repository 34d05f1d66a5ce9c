package main

import (
	"github.com/spf13/cobra"
)

var (
	feedFollowing bool
	feedOldest    bool
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "List projects from everyone, or from people you follow",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if feedFollowing {
			return requireLogin(cmd, args)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := client.Feed(cmd.Context(), feedFollowing, feedOldest)
		if err != nil {
			return err
		}
		if printer.JSON() {
			return printer.Value(f)
		}
		if f.Empty {
			printer.Warn("%s", f.Message)
			return nil
		}
		printer.Projects(f.Items)
		return nil
	},
}

func init() {
	feedCmd.Flags().BoolVar(&feedFollowing, "following", false, "only projects by people you follow")
	feedCmd.Flags().BoolVar(&feedOldest, "oldest", false, "oldest first")
}
