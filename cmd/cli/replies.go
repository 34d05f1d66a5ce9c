package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zfogg/showcase/internal/cli/api"
	"github.com/zfogg/showcase/internal/thread"
)

var repliesAll bool

var repliesCmd = &cobra.Command{
	Use:     "replies <discussion-id>",
	Short:   "Read a discussion's replies, oldest first",
	Args:    cobra.ExactArgs(1),
	PreRunE: requireLogin,
	RunE: func(cmd *cobra.Command, args []string) error {
		t := thread.New()
		var err error
		if repliesAll {
			err = client.LoadAll(cmd.Context(), t, args[0])
		} else {
			_, err = client.LoadMore(cmd.Context(), t, args[0])
		}
		if err != nil {
			return err
		}
		entries := t.Entries()
		if printer.JSON() {
			return printer.Value(entries)
		}
		if len(entries) == 0 {
			printer.Info("No replies yet.")
			return nil
		}
		printer.Thread(entries)
		if cursor, more := t.Next(); more && !repliesAll {
			printer.Info("More replies: showcase replies %s --all (next after %s)", args[0], cursor)
		}
		return nil
	},
}

var replyCmd = &cobra.Command{
	Use:     "reply <discussion-id> <body>",
	Short:   "Post a reply to a discussion",
	Args:    cobra.MinimumNArgs(2),
	PreRunE: requireLogin,
	RunE: func(cmd *cobra.Command, args []string) error {
		discussionID, body := args[0], strings.Join(args[1:], " ")

		t := thread.New()
		if err := client.LoadAll(cmd.Context(), t, discussionID); err != nil {
			return err
		}
		if _, err := client.SendReply(cmd.Context(), t, discussionID, creds.Username, body); err != nil {
			var sendErr *api.SendError
			if errors.As(err, &sendErr) && !printer.JSON() {
				printer.Thread([]thread.Entry{sendErr.Entry})
			}
			return err
		}
		if printer.JSON() {
			return printer.Value(t.Entries())
		}
		printer.Thread(t.Entries())
		printer.Success("Reply posted")
		return nil
	},
}

func init() {
	repliesCmd.Flags().BoolVarP(&repliesAll, "all", "a", false, "fetch every page")
}
