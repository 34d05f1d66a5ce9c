package main

import (
	"bufio"
	"context"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zfogg/showcase/internal/cli/api"
	"github.com/zfogg/showcase/internal/cli/config"
	"github.com/zfogg/showcase/internal/cli/output"
	"github.com/zfogg/showcase/internal/debounce"
)

var (
	searchType  string
	searchLimit int
	searchWatch bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search projects or users",
	Long: `Search projects or users by text.

With --watch, each line typed on stdin becomes the new query. Only the
latest query runs, after typing has paused.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if searchWatch {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if searchWatch {
			return watchSearch(cmd.Context())
		}
		res, err := client.Search(cmd.Context(), strings.Join(args, " "), searchType, searchLimit)
		if err != nil {
			return err
		}
		return printResults(res)
	},
}

func printResults(res *api.SearchResults) error {
	if printer.JSON() {
		return printer.Value(res)
	}
	if len(res.Projects) == 0 && len(res.Users) == 0 {
		printer.Info("No results for %q", res.Query)
		return nil
	}
	printer.Projects(res.Projects)
	printer.Users(res.Users)
	return nil
}

func watchSearch(ctx context.Context) error {
	delay := time.Duration(config.GetInt(config.KeySearchDelay)) * time.Millisecond
	done := make(chan struct{}, 1)

	d := debounce.New(delay,
		func(ctx context.Context, q string) (*api.SearchResults, error) {
			return client.Search(ctx, q, searchType, searchLimit)
		},
		func(r debounce.Result[string, *api.SearchResults]) {
			if r.Err != nil {
				output.Error("search %q: %v", r.Input, r.Err)
			} else if err := printResults(r.Value); err != nil {
				output.Error("%v", err)
			}
			select {
			case done <- struct{}{}:
			default:
			}
		})
	defer d.Stop()

	printer.Info("Type a query and press enter; Ctrl-D to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	last := ""
	for scanner.Scan() {
		q := strings.TrimSpace(scanner.Text())
		if q == "" || q == last {
			continue
		}
		last = q
		select {
		case <-done:
		default:
		}
		d.Trigger(ctx, q)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if last == "" {
		return nil
	}

	// stdin closed; let the final query finish
	select {
	case <-done:
	case <-time.After(delay + config.Timeout()):
	case <-ctx.Done():
	}
	return nil
}

func init() {
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "projects", "what to search: projects or users")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 20, "maximum results")
	searchCmd.Flags().BoolVarP(&searchWatch, "watch", "w", false, "read queries from stdin as you type")
}
