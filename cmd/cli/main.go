// Command showcase is a terminal client for the showcase API.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/zfogg/showcase/internal/cli/api"
	"github.com/zfogg/showcase/internal/cli/config"
	"github.com/zfogg/showcase/internal/cli/output"
)

var (
	configPath string
	outputFmt  string
	baseURL    string
	verbose    bool

	client  *api.Client
	printer *output.Printer
	logger  *log.Logger
	creds   *config.Credentials
	closeLg = func() error { return nil }
)

var errNotLoggedIn = errors.New("not logged in; run `showcase login` first")

var rootCmd = &cobra.Command{
	Use:           "showcase",
	Short:         "Showcase CLI - browse projects, discussions and notifications",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(configPath); err != nil {
			return err
		}
		if cmd.Flags().Changed("output") {
			config.Set(config.KeyOutput, outputFmt)
		}
		if baseURL != "" {
			config.Set(config.KeyBaseURL, baseURL)
		}
		level := config.GetString(config.KeyLogLevel)
		if verbose {
			level = "debug"
		}
		logger, closeLg = output.NewLogger(level, config.GetString(config.KeyLogFile))

		printer = output.NewPrinter(config.GetString(config.KeyOutput))
		client = api.New(config.GetString(config.KeyBaseURL), config.Timeout(), logger)

		var err error
		creds, err = config.LoadCredentials()
		if err != nil {
			logger.Warn("Ignoring unreadable credentials", "err", err)
			creds = nil
		}
		if creds.Valid() {
			client.SetToken(creds.Token)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLg()
	},
}

// requireLogin is the PreRunE of commands that need a session.
func requireLogin(cmd *cobra.Command, args []string) error {
	if !creds.Valid() {
		return errNotLoggedIn
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: <user config dir>/showcase/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "output format: text or json")
	rootCmd.PersistentFlags().StringVar(&baseURL, "api", "", "API base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log HTTP traffic")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(repliesCmd, replyCmd)
	rootCmd.AddCommand(searchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if api.IsUnauthorized(err) {
			err = errors.New("session expired; run `showcase login` again")
		}
		output.Error("%v", err)
		os.Exit(1)
	}
}
