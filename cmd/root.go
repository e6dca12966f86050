package cmd

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/ca-srg/slackfetch/internal/config"
	"github.com/ca-srg/slackfetch/internal/slackclient"
)

var rootCmd = &cobra.Command{
	Use:   "slackfetch",
	Short: "Fetch one user's messages from a Slack channel",
	Long: `slackfetch retrieves messages written by a single workspace member in a
Slack channel, either through the search API (search.messages, one request)
or by reading the channel history (conversations.history, optionally across
all pages) and filtering locally.

Run without a subcommand for an interactive session. Configuration comes from
the environment (SLACK_TOKEN, SLACK_CHANNEL_ID, SLACK_USER_ID), with an
optional .env file in the working directory.`,
	RunE:          runInteractive,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadConfig pulls in an optional .env file and reads the environment.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: could not load .env file: %v", err)
		}
	}
	return config.Load()
}

func newSlackClient(cfg *config.Config, logger *log.Logger) *slackclient.Client {
	return slackclient.NewFromToken(cfg.Token, cfg.HTTPTimeout,
		slackclient.WithLogger(logger),
		slackclient.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst)),
	)
}

func newLogger() *log.Logger {
	return log.New(os.Stdout, "slackfetch ", log.LstdFlags)
}

// truncateToken keeps enough of a token to recognize it without echoing the
// whole credential.
func truncateToken(token string) string {
	if len(token) <= 12 {
		return "..."
	}
	return token[:12] + "..."
}
