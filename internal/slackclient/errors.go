package slackclient

import (
	"errors"
	"fmt"

	"github.com/slack-go/slack"
)

// APIError is the single failure kind surfaced by the client. It carries the
// Slack error code when the API rejected the call, a remediation hint for the
// codes this tool knows how to explain, and the underlying cause for
// everything else (transport failures, malformed bodies).
type APIError struct {
	Op   string // Slack method, e.g. "conversations.history"
	Code string // Slack error code, empty for transport-level failures
	Hint string // human-readable remediation, empty when unknown
	Err  error
}

func (e *APIError) Error() string {
	switch {
	case e.Hint != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Hint)
	case e.Code != "":
		return fmt.Sprintf("%s: slack error: %s", e.Op, e.Code)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

const (
	opHistory = "conversations.history"
	opSearch  = "search.messages"
)

// wrapAPIError classifies err from a Slack call. API-level rejections keep
// their error code and get a hint where one is known; anything else (network,
// timeout, decode) is carried as the raw cause.
func wrapAPIError(op, channel string, err error) *APIError {
	var serr slack.SlackErrorResponse
	if errors.As(err, &serr) {
		return &APIError{Op: op, Code: serr.Err, Hint: hintFor(op, serr.Err, channel), Err: err}
	}
	return &APIError{Op: op, Err: err}
}

func hintFor(op, code, channel string) string {
	switch op {
	case opHistory:
		switch code {
		case "missing_scope":
			return "the token is missing a history scope; grant channels:history (public), " +
				"groups:history (private), im:history (DM) or mpim:history (group DM) and reinstall the app"
		case "channel_not_found":
			return fmt.Sprintf("channel %q was not found", channel)
		case "not_in_channel":
			return "the token's bot or user is not a member of this channel"
		}
	case opSearch:
		switch code {
		case "missing_scope":
			return "the token is missing the search:read scope; grant it and reinstall the app"
		case "invalid_arguments":
			return "the search query was rejected; check the channel and user ids"
		}
	}
	return ""
}
