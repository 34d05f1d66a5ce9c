package main

import (
	"github.com/spf13/cobra"
)

var (
	notifLimit  int
	notifOffset int
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notifs"},
	Short:   "Show your notifications",
	PreRunE: requireLogin,
	RunE:    listNotifications,
}

var notificationsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List notifications, newest first",
	PreRunE: requireLogin,
	RunE:    listNotifications,
}

var notificationsReadAllCmd = &cobra.Command{
	Use:     "read-all",
	Short:   "Mark every notification as read",
	PreRunE: requireLogin,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := client.MarkAllRead(cmd.Context())
		if err != nil {
			return err
		}
		if printer.JSON() {
			return printer.Value(map[string]int64{"marked": n})
		}
		printer.Success("Marked %d notifications as read", n)
		return nil
	},
}

func listNotifications(cmd *cobra.Command, args []string) error {
	inbox, err := client.Notifications(cmd.Context(), notifLimit, notifOffset)
	if err != nil {
		return err
	}
	if printer.JSON() {
		return printer.Value(inbox)
	}
	if len(inbox.Notifications) == 0 {
		printer.Info("No notifications yet.")
		return nil
	}
	printer.Info("%d unread", inbox.Unread)
	printer.Notifications(inbox.Notifications)
	return nil
}

func init() {
	for _, c := range []*cobra.Command{notificationsCmd, notificationsListCmd} {
		c.Flags().IntVarP(&notifLimit, "limit", "l", 20, "how many to show")
		c.Flags().IntVar(&notifOffset, "offset", 0, "skip this many")
	}
	notificationsCmd.AddCommand(notificationsListCmd, notificationsReadAllCmd)
}
