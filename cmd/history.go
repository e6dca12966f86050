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
	historyLimit    int
	historyOldest   string
	historyLatest   string
	historyAll      bool
	historyOutput   string
	historyNoFilter bool
	historyStats    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Fetch channel history and filter it for the target user",
	Long: `History reads the channel through the conversations.history API and keeps
the messages written by the configured user. Pagination past the first page
must be requested explicitly with --all; a date range alone does not trigger
it. Requires a token with the matching *:history scope for the channel type.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 100, "Messages per page (max 200)")
	historyCmd.Flags().StringVar(&historyOldest, "oldest", "", "Only messages after this date (YYYY-MM-DD or \"YYYY-MM-DD HH:MM:SS\")")
	historyCmd.Flags().StringVar(&historyLatest, "latest", "", "Only messages before this date (YYYY-MM-DD or \"YYYY-MM-DD HH:MM:SS\")")
	historyCmd.Flags().BoolVarP(&historyAll, "all", "a", false, "Follow pagination cursors until the channel is exhausted")
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "", "Write results to this JSON file (prefixed with the user id)")
	historyCmd.Flags().BoolVar(&historyNoFilter, "no-filter", false, "Keep every author instead of filtering for the target user")
	historyCmd.Flags().BoolVar(&historyStats, "stats", false, "Print per-user message counts for the fetched range")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := newSlackClient(cfg, newLogger())
	msgs, err := client.FetchHistory(ctx, slackclient.HistoryParams{
		Channel:  cfg.ChannelID,
		Limit:    historyLimit,
		Oldest:   historyOldest,
		Latest:   historyLatest,
		FetchAll: historyAll,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	result := msgs
	renderUser := cfg.UserID
	if historyNoFilter {
		renderUser = ""
	} else {
		result = messages.FilterByUser(msgs, cfg.UserID)
	}
	messages.Render(out, result, renderUser)

	if historyOutput != "" {
		if err := messages.Save(out, result, historyOutput, renderUser); err != nil {
			// A failed save does not discard the fetched results.
			fmt.Fprintf(out, "file save error: %v\n", err)
		}
	}

	if historyStats {
		messages.TallyByUser(out, msgs, cfg.UserID)
	}
	return nil
}
