package slackclient

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type mockSlackAPI struct {
	historyFunc func(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	searchFunc  func(ctx context.Context, query string, params slack.SearchParameters) (*slack.SearchMessages, error)
}

func (m *mockSlackAPI) GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
	return m.historyFunc(ctx, params)
}

func (m *mockSlackAPI) SearchMessagesContext(ctx context.Context, query string, params slack.SearchParameters) (*slack.SearchMessages, error) {
	return m.searchFunc(ctx, query, params)
}

func newTestClient(api SlackAPI) *Client {
	return New(api,
		WithRateLimiter(rate.NewLimiter(rate.Inf, 1)),
		WithLogger(log.New(io.Discard, "", 0)),
	)
}

func historyMessage(user, text, ts string) slack.Message {
	return slack.Message{Msg: slack.Msg{User: user, Text: text, Timestamp: ts, Type: "message"}}
}

func TestFetchHistorySinglePage(t *testing.T) {
	var calls int
	mock := &mockSlackAPI{
		historyFunc: func(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
			calls++
			assert.Equal(t, "C123", params.ChannelID)
			assert.Equal(t, 100, params.Limit)
			return &slack.GetConversationHistoryResponse{
				Messages: []slack.Message{
					historyMessage("U111", "hello", "1700000001.000100"),
					historyMessage("U222", "world", "1700000000.000100"),
				},
			}, nil
		},
	}

	msgs, err := newTestClient(mock).FetchHistory(context.Background(), HistoryParams{Channel: "C123", Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	require.Len(t, msgs, 2)
	assert.Equal(t, "U111", msgs[0].User)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, "message", msgs[0].Type)
}

func TestFetchHistoryFollowsCursor(t *testing.T) {
	var cursors []string
	mock := &mockSlackAPI{
		historyFunc: func(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
			cursors = append(cursors, params.Cursor)
			if params.Cursor == "" {
				resp := &slack.GetConversationHistoryResponse{
					HasMore: true,
					Messages: []slack.Message{
						historyMessage("U111", "page one a", "1700000003.000100"),
						historyMessage("U222", "page one b", "1700000002.000100"),
					},
				}
				resp.ResponseMetaData.NextCursor = "cursor123"
				return resp, nil
			}
			return &slack.GetConversationHistoryResponse{
				Messages: []slack.Message{
					historyMessage("U111", "page two", "1700000001.000100"),
				},
			}, nil
		},
	}

	msgs, err := newTestClient(mock).FetchHistory(context.Background(), HistoryParams{Channel: "C123", FetchAll: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"", "cursor123"}, cursors)
	require.Len(t, msgs, 3)
	assert.Equal(t, "page two", msgs[2].Text)
}

func TestFetchHistoryStopsAfterFirstPageWithoutFetchAll(t *testing.T) {
	var calls int
	mock := &mockSlackAPI{
		historyFunc: func(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
			calls++
			resp := &slack.GetConversationHistoryResponse{
				HasMore:  true,
				Messages: []slack.Message{historyMessage("U111", "only page", "1700000000.000100")},
			}
			resp.ResponseMetaData.NextCursor = "cursor123"
			return resp, nil
		},
	}

	msgs, err := newTestClient(mock).FetchHistory(context.Background(), HistoryParams{Channel: "C123"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Len(t, msgs, 1)
}

func TestFetchHistoryClampsLimit(t *testing.T) {
	mock := &mockSlackAPI{
		historyFunc: func(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
			assert.Equal(t, 200, params.Limit)
			return &slack.GetConversationHistoryResponse{}, nil
		},
	}

	_, err := newTestClient(mock).FetchHistory(context.Background(), HistoryParams{Channel: "C123", Limit: 500})
	require.NoError(t, err)
}

func TestFetchHistoryDateBounds(t *testing.T) {
	mock := &mockSlackAPI{
		historyFunc: func(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
			assert.Equal(t, "1743465600.000000", params.Oldest)
			assert.Equal(t, "1746057600.000000", params.Latest)
			return &slack.GetConversationHistoryResponse{}, nil
		},
	}

	_, err := newTestClient(mock).FetchHistory(context.Background(), HistoryParams{
		Channel: "C123",
		Oldest:  "2025-04-01",
		Latest:  "2025-05-01",
	})
	require.NoError(t, err)
}

func TestFetchHistoryOmitsInvalidDateBounds(t *testing.T) {
	mock := &mockSlackAPI{
		historyFunc: func(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
			assert.Empty(t, params.Oldest)
			assert.Empty(t, params.Latest)
			return &slack.GetConversationHistoryResponse{}, nil
		},
	}

	_, err := newTestClient(mock).FetchHistory(context.Background(), HistoryParams{
		Channel: "C123",
		Oldest:  "not-a-date",
	})
	require.NoError(t, err)
}

func TestFetchHistoryAPIErrorReturnsNoPartialResult(t *testing.T) {
	mock := &mockSlackAPI{
		historyFunc: func(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
			return nil, slack.SlackErrorResponse{Err: "missing_scope"}
		},
	}

	msgs, err := newTestClient(mock).FetchHistory(context.Background(), HistoryParams{Channel: "C123"})
	assert.Nil(t, msgs)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "conversations.history", apiErr.Op)
	assert.Equal(t, "missing_scope", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "channels:history")
}

func TestFetchHistoryErrorMapping(t *testing.T) {
	tests := []struct {
		code string
		hint string
	}{
		{code: "channel_not_found", hint: `channel "C123" was not found`},
		{code: "not_in_channel", hint: "not a member"},
		{code: "internal_error", hint: "slack error: internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			mock := &mockSlackAPI{
				historyFunc: func(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
					return nil, slack.SlackErrorResponse{Err: tt.code}
				},
			}

			_, err := newTestClient(mock).FetchHistory(context.Background(), HistoryParams{Channel: "C123"})
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Contains(t, apiErr.Error(), tt.hint)
		})
	}
}

func TestFetchHistoryWrapsTransportError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	mock := &mockSlackAPI{
		historyFunc: func(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
			return nil, cause
		},
	}

	_, err := newTestClient(mock).FetchHistory(context.Background(), HistoryParams{Channel: "C123"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Empty(t, apiErr.Code)
	assert.ErrorIs(t, err, cause)
}

func TestSearchByUserQueryAndParams(t *testing.T) {
	mock := &mockSlackAPI{
		searchFunc: func(ctx context.Context, query string, params slack.SearchParameters) (*slack.SearchMessages, error) {
			assert.Equal(t, "in:<#C123> from:<@U111> after:2025-04-01 before:2025-04-30", query)
			assert.Equal(t, "timestamp", params.Sort)
			assert.Equal(t, "desc", params.SortDirection)
			assert.Equal(t, 100, params.Count)
			return &slack.SearchMessages{
				Matches: []slack.SearchMessage{
					{
						Type:      "message",
						User:      "U111",
						Text:      "found it",
						Timestamp: "1700000000.000100",
						Channel:   slack.CtxChannel{ID: "C123", Name: "general"},
					},
				},
			}, nil
		},
	}

	msgs, err := newTestClient(mock).SearchByUser(context.Background(), SearchParams{
		Channel: "C123",
		User:    "U111",
		Count:   100,
		After:   "2025-04-01",
		Before:  "2025-04-30",
	})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "U111", msgs[0].User)
	assert.Equal(t, "found it", msgs[0].Text)
	assert.Equal(t, "C123", msgs[0].Channel)
}

func TestSearchByUserOmitsBlankDateBounds(t *testing.T) {
	mock := &mockSlackAPI{
		searchFunc: func(ctx context.Context, query string, params slack.SearchParameters) (*slack.SearchMessages, error) {
			assert.Equal(t, "in:<#C123> from:<@U111>", query)
			return &slack.SearchMessages{}, nil
		},
	}

	_, err := newTestClient(mock).SearchByUser(context.Background(), SearchParams{Channel: "C123", User: "U111"})
	require.NoError(t, err)
}

func TestSearchByUserClampsCount(t *testing.T) {
	mock := &mockSlackAPI{
		searchFunc: func(ctx context.Context, query string, params slack.SearchParameters) (*slack.SearchMessages, error) {
			assert.Equal(t, 1000, params.Count)
			return &slack.SearchMessages{}, nil
		},
	}

	_, err := newTestClient(mock).SearchByUser(context.Background(), SearchParams{Channel: "C123", User: "U111", Count: 5000})
	require.NoError(t, err)
}

func TestSearchByUserErrorMapping(t *testing.T) {
	mock := &mockSlackAPI{
		searchFunc: func(ctx context.Context, query string, params slack.SearchParameters) (*slack.SearchMessages, error) {
			return nil, slack.SlackErrorResponse{Err: "missing_scope"}
		},
	}

	msgs, err := newTestClient(mock).SearchByUser(context.Background(), SearchParams{Channel: "C123", User: "U111"})
	assert.Nil(t, msgs)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "search.messages", apiErr.Op)
	assert.Contains(t, apiErr.Error(), "search:read")
}

func TestFetchHistoryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := &mockSlackAPI{
		historyFunc: func(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
			t.Fatal("request should not be issued after cancellation")
			return nil, nil
		},
	}

	client := New(mock,
		WithRateLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)),
		WithLogger(log.New(io.Discard, "", 0)),
	)
	// Drain the initial burst token so Wait has to block and observe ctx.
	_ = client.limiter.Allow()

	_, err := client.FetchHistory(ctx, HistoryParams{Channel: "C123"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
