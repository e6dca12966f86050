// Package slackclient wraps the two Slack Web API methods this tool uses:
// conversations.history with cursor pagination, and search.messages scoped to
// one channel and one author. All failures surface as *APIError; a failed
// request aborts the operation, nothing is retried.
package slackclient

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"golang.org/x/time/rate"

	"github.com/ca-srg/slackfetch/internal/messages"
	"github.com/ca-srg/slackfetch/internal/timeutil"
)

const (
	// Documented per-request maxima; larger requests are clamped, not rejected.
	maxHistoryPageSize = 200
	maxSearchCount     = 1000

	defaultPageSize = 100
)

// SlackAPI is the subset of the Slack Web API the client depends on.
type SlackAPI interface {
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	SearchMessagesContext(ctx context.Context, query string, params slack.SearchParameters) (*slack.SearchMessages, error)
}

// Client issues authenticated Slack Web API requests.
type Client struct {
	api     SlackAPI
	limiter *rate.Limiter
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimiter overrides the default request pacing.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New constructs a Client over an existing API implementation.
func New(api SlackAPI, opts ...Option) *Client {
	c := &Client{
		api:     api,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		logger:  log.New(os.Stdout, "slackfetch ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromToken constructs a Client talking to the real Slack Web API with a
// per-request HTTP timeout.
func NewFromToken(token string, timeout time.Duration, opts ...Option) *Client {
	api := slack.New(token, slack.OptionHTTPClient(&http.Client{Timeout: timeout}))
	return New(api, opts...)
}

// HistoryParams configures a FetchHistory call. Oldest and Latest accept
// "2006-01-02" or "2006-01-02 15:04:05"; unparseable or blank bounds are
// omitted from the request. Pagination past the first page only happens when
// FetchAll is set.
type HistoryParams struct {
	Channel  string
	Limit    int
	Oldest   string
	Latest   string
	FetchAll bool
}

// SearchParams configures a SearchByUser call. After and Before are date
// literals passed through to the search query; blank means unbounded.
type SearchParams struct {
	Channel string
	User    string
	Count   int
	After   string
	Before  string
}

// FetchHistory retrieves channel history, newest first as the API returns it.
// With FetchAll set it follows continuation cursors until the server reports
// no further pages; otherwise it returns the first page only. The first
// failed request aborts the whole operation.
func (c *Client) FetchHistory(ctx context.Context, p HistoryParams) ([]messages.Message, error) {
	pageSize := p.Limit
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxHistoryPageSize {
		pageSize = maxHistoryPageSize
	}

	params := &slack.GetConversationHistoryParameters{
		ChannelID: p.Channel,
		Limit:     pageSize,
	}
	if ts, ok := timeutil.DateToTimestamp(p.Oldest); ok {
		params.Oldest = timeutil.FormatSlackTimestamp(ts)
	}
	if ts, ok := timeutil.DateToTimestamp(p.Latest); ok {
		params.Latest = timeutil.FormatSlackTimestamp(ts)
	}

	var all []messages.Message
	for {
		if err := c.waitRate(ctx); err != nil {
			return nil, wrapAPIError(opHistory, p.Channel, err)
		}
		resp, err := c.api.GetConversationHistoryContext(ctx, params)
		if err != nil {
			return nil, wrapAPIError(opHistory, p.Channel, err)
		}

		for _, msg := range resp.Messages {
			all = append(all, fromHistoryMessage(msg))
		}

		if !p.FetchAll || !resp.HasMore || resp.ResponseMetaData.NextCursor == "" {
			break
		}
		params.Cursor = resp.ResponseMetaData.NextCursor
		c.logger.Printf("fetching... %d messages so far", len(all))
	}

	c.logger.Printf("fetch complete: %d messages", len(all))
	return all, nil
}

// SearchByUser issues one search.messages call for messages authored by
// p.User inside p.Channel, sorted newest first, and returns the match list.
func (c *Client) SearchByUser(ctx context.Context, p SearchParams) ([]messages.Message, error) {
	count := p.Count
	if count <= 0 {
		count = defaultPageSize
	}
	if count > maxSearchCount {
		count = maxSearchCount
	}

	query := buildSearchQuery(p)
	params := slack.SearchParameters{
		Sort:          "timestamp",
		SortDirection: "desc",
		Count:         count,
		Page:          1,
	}

	if err := c.waitRate(ctx); err != nil {
		return nil, wrapAPIError(opSearch, p.Channel, err)
	}
	result, err := c.api.SearchMessagesContext(ctx, query, params)
	if err != nil {
		return nil, wrapAPIError(opSearch, p.Channel, err)
	}

	msgs := make([]messages.Message, 0, len(result.Matches))
	for _, match := range result.Matches {
		msgs = append(msgs, fromSearchMatch(match))
	}

	c.logger.Printf("search query: %s", query)
	c.logger.Printf("search found %d messages", len(msgs))
	return msgs, nil
}

func (c *Client) waitRate(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func buildSearchQuery(p SearchParams) string {
	parts := []string{
		fmt.Sprintf("in:<#%s>", p.Channel),
		fmt.Sprintf("from:<@%s>", p.User),
	}
	if p.After != "" {
		parts = append(parts, "after:"+p.After)
	}
	if p.Before != "" {
		parts = append(parts, "before:"+p.Before)
	}
	return strings.Join(parts, " ")
}

func fromHistoryMessage(msg slack.Message) messages.Message {
	return messages.Message{
		User:      msg.User,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
		Type:      msg.Type,
		Team:      msg.Team,
		Channel:   msg.Channel,
	}
}

func fromSearchMatch(match slack.SearchMessage) messages.Message {
	return messages.Message{
		User:      match.User,
		Text:      match.Text,
		Timestamp: match.Timestamp,
		Type:      match.Type,
		Channel:   match.Channel.ID,
	}
}
