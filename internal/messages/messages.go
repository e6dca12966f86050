// Package messages holds the channel message record and the client-side
// post-processing applied to fetched messages: author filtering, console
// rendering, per-author statistics and JSON persistence.
package messages

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ca-srg/slackfetch/internal/timeutil"
)

// Message is the normalized record for a single channel message. Fields not
// listed here are dropped on conversion; the Slack API is free to add new
// ones without affecting this tool.
type Message struct {
	User      string `json:"user"`
	Text      string `json:"text"`
	Timestamp string `json:"ts"`
	Type      string `json:"type,omitempty"`
	Team      string `json:"team,omitempty"`
	Channel   string `json:"channel,omitempty"`
}

// FilterByUser returns the messages authored by user, preserving the input
// order. Filtering an already-filtered slice is a no-op.
func FilterByUser(msgs []Message, user string) []Message {
	filtered := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.User == user {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// Render writes a numbered listing of msgs to w. When user is non-empty the
// heading names the user the listing was filtered for.
func Render(w io.Writer, msgs []Message, user string) {
	if len(msgs) == 0 {
		if user != "" {
			fmt.Fprintf(w, "no messages found for user %s\n", user)
		} else {
			fmt.Fprintln(w, "no messages found")
		}
		return
	}

	if user != "" {
		fmt.Fprintf(w, "messages from user %s (%d):\n\n", user, len(msgs))
	} else {
		fmt.Fprintf(w, "fetched %d messages:\n\n", len(msgs))
	}

	for i, m := range msgs {
		author := m.User
		if author == "" {
			author = "unknown"
		}
		fmt.Fprintf(w, "%d. User: %s\n", i+1, author)
		fmt.Fprintf(w, "   Time: %s (%s)\n", timeutil.TimestampToReadable(m.Timestamp), m.Timestamp)
		fmt.Fprintf(w, "   Text: %s\n", m.Text)
		fmt.Fprintln(w, strings.Repeat("-", 70))
	}
}

// TallyByUser writes per-user message counts to w, sorted by count descending
// (ties broken by user id so the output is stable), marking the target user's
// row.
func TallyByUser(w io.Writer, msgs []Message, target string) {
	counts := make(map[string]int)
	for _, m := range msgs {
		user := m.User
		if user == "" {
			user = "unknown"
		}
		counts[user]++
	}

	users := make([]string, 0, len(counts))
	for user := range counts {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if counts[users[i]] != counts[users[j]] {
			return counts[users[i]] > counts[users[j]]
		}
		return users[i] < users[j]
	})

	fmt.Fprintln(w, "\n=== statistics ===")
	fmt.Fprintln(w, "messages per user:")
	for _, user := range users {
		if user == target {
			fmt.Fprintf(w, "  %s: %d <- target user\n", user, counts[user])
		} else {
			fmt.Fprintf(w, "  %s: %d\n", user, counts[user])
		}
	}
}

// Save serializes msgs as indented JSON to filename; a non-empty user
// prefixes the file's base name. An empty slice writes nothing. Non-ASCII
// text is written as-is rather than escaped.
func Save(w io.Writer, msgs []Message, filename, user string) error {
	if len(msgs) == 0 {
		fmt.Fprintln(w, "no messages to save")
		return nil
	}

	if user != "" {
		filename = filepath.Join(filepath.Dir(filename), user+"_"+filepath.Base(filename))
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create %s: %w", filename, err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(msgs); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filename, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filename, err)
	}

	fmt.Fprintf(w, "saved %d messages to %s\n", len(msgs), filename)
	return nil
}
