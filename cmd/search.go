package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ca-srg/slackfetch/internal/messages"
	"github.com/ca-srg/slackfetch/internal/slackclient"
)

var (
	searchCount  int
	searchAfter  string
	searchBefore string
	searchOutput string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the channel for the target user's messages",
	Long: `Search uses the search.messages API to fetch messages written by the
configured user in the configured channel with a single request. Requires a
user token with the search:read scope.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchCount, "count", "c", 100, "Number of messages to fetch (max 1000)")
	searchCmd.Flags().StringVar(&searchAfter, "after", "", "Only messages after this date (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchBefore, "before", "", "Only messages before this date (YYYY-MM-DD)")
	searchCmd.Flags().StringVarP(&searchOutput, "output", "o", "", "Write results to this JSON file (prefixed with the user id)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := newSlackClient(cfg, newLogger())
	msgs, err := client.SearchByUser(ctx, slackclient.SearchParams{
		Channel: cfg.ChannelID,
		User:    cfg.UserID,
		Count:   searchCount,
		After:   searchAfter,
		Before:  searchBefore,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	messages.Render(out, msgs, cfg.UserID)

	if searchOutput != "" {
		if err := messages.Save(out, msgs, searchOutput, cfg.UserID); err != nil {
			// A failed save does not discard the fetched results.
			fmt.Fprintf(out, "file save error: %v\n", err)
		}
	}
	return nil
}
