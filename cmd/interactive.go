package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ca-srg/slackfetch/internal/config"
	"github.com/ca-srg/slackfetch/internal/messages"
	"github.com/ca-srg/slackfetch/internal/slackclient"
)

// Prompter supplies answers to interactive questions. The default reads
// stdin; tests inject a scripted implementation.
type Prompter interface {
	Prompt(text, def string) (string, error)
}

type stdinPrompter struct {
	r *bufio.Reader
}

func (p *stdinPrompter) Prompt(text, def string) (string, error) {
	fmt.Print(text)
	line, err := p.r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

// fetchAPI is the retrieval surface the session needs from the Slack client.
type fetchAPI interface {
	FetchHistory(ctx context.Context, p slackclient.HistoryParams) ([]messages.Message, error)
	SearchByUser(ctx context.Context, p slackclient.SearchParams) ([]messages.Message, error)
}

// session drives one interactive run: gather settings, dispatch to a
// retrieval strategy, post-process the result.
type session struct {
	cfg    *config.Config
	client fetchAPI
	prompt Prompter
	out    io.Writer
}

func runInteractive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := &session{
		cfg:    cfg,
		client: newSlackClient(cfg, newLogger()),
		prompt: &stdinPrompter{r: bufio.NewReader(os.Stdin)},
		out:    cmd.OutOrStdout(),
	}

	if err := s.run(ctx); err != nil {
		var apiErr *slackclient.APIError
		switch {
		case errors.As(err, &apiErr):
			fmt.Fprintf(s.out, "\nSlack API error: %v\n", apiErr)
		case errors.Is(err, context.Canceled):
			fmt.Fprintln(s.out, "\ninterrupted by user")
		default:
			fmt.Fprintf(s.out, "\nunexpected error: %v\n", err)
		}
	}
	return nil
}

func (s *session) run(ctx context.Context) error {
	fmt.Fprintln(s.out, "configuration:")
	fmt.Fprintf(s.out, "  channel: %s\n", s.cfg.ChannelID)
	fmt.Fprintf(s.out, "  user:    %s\n", s.cfg.UserID)
	fmt.Fprintf(s.out, "  token:   %s\n", truncateToken(s.cfg.Token))

	fmt.Fprintln(s.out, "\n=== choose a retrieval strategy ===")
	fmt.Fprintln(s.out, "1. direct search (recommended): search.messages returns only the target user's messages")
	fmt.Fprintln(s.out, "2. fetch then filter: read channel history and filter locally")

	choice, err := s.prompt.Prompt("choice (1/2): ", "")
	if err != nil {
		return err
	}

	if choice != "1" && choice != "2" {
		fmt.Fprintln(s.out, "unrecognized choice, exiting")
		return nil
	}

	fmt.Fprintln(s.out, "\n=== options ===")
	countAnswer, err := s.prompt.Prompt("number of messages to fetch (default 100): ", "")
	if err != nil {
		return err
	}
	count := parseCount(countAnswer)

	fmt.Fprintln(s.out, "\ndate bounds may be given as YYYY-MM-DD:")
	start, err := s.prompt.Prompt("start date (blank for none): ", "")
	if err != nil {
		return err
	}
	end, err := s.prompt.Prompt("end date (blank for none): ", "")
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "\nsettings: count=%d, start=%s, end=%s\n", count, orUnbounded(start), orUnbounded(end))

	if choice == "1" {
		return s.runSearch(ctx, count, start, end)
	}
	return s.runHistory(ctx, count, start, end)
}

func (s *session) runSearch(ctx context.Context, count int, start, end string) error {
	fmt.Fprintf(s.out, "\nsearching for messages from user %s...\n", s.cfg.UserID)

	msgs, err := s.client.SearchByUser(ctx, slackclient.SearchParams{
		Channel: s.cfg.ChannelID,
		User:    s.cfg.UserID,
		Count:   count,
		After:   start,
		Before:  end,
	})
	if err != nil {
		return err
	}

	messages.Render(s.out, msgs, s.cfg.UserID)
	return s.offerSave(msgs)
}

func (s *session) runHistory(ctx context.Context, limit int, start, end string) error {
	fmt.Fprintf(s.out, "\nfetching history of channel %s...\n", s.cfg.ChannelID)

	// First page only unless explicitly asked; a wide date range does not
	// imply pagination.
	allAnswer, err := s.prompt.Prompt("fetch all pages? (y/N): ", "n")
	if err != nil {
		return err
	}
	fetchAll := strings.EqualFold(allAnswer, "y")

	msgs, err := s.client.FetchHistory(ctx, slackclient.HistoryParams{
		Channel:  s.cfg.ChannelID,
		Limit:    limit,
		Oldest:   start,
		Latest:   end,
		FetchAll: fetchAll,
	})
	if err != nil {
		return err
	}

	filtered := messages.FilterByUser(msgs, s.cfg.UserID)
	messages.Render(s.out, filtered, s.cfg.UserID)

	if err := s.offerSave(filtered); err != nil {
		return err
	}

	messages.TallyByUser(s.out, msgs, s.cfg.UserID)
	return nil
}

func (s *session) offerSave(msgs []messages.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	answer, err := s.prompt.Prompt("\nsave messages to a JSON file? (y/n): ", "n")
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") {
		return nil
	}

	filename := fmt.Sprintf("slack_messages_%s.json", s.cfg.ChannelID)
	if err := messages.Save(s.out, msgs, filename, s.cfg.UserID); err != nil {
		// A failed save does not abort the session.
		fmt.Fprintf(s.out, "file save error: %v\n", err)
	}
	return nil
}

// parseCount mirrors the prompt contract: anything that is not a whole
// non-negative number falls back to 100.
func parseCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 100
	}
	return n
}

func orUnbounded(s string) string {
	if s == "" {
		return "unbounded"
	}
	return s
}
