package apify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		Token:      "test-token",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)
	return client, server
}

func TestNewClientRequiresToken(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Token: "   "})
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestStartRunPostsInputAndDecodesRun(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/acts/apify~website-content-crawler/runs", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var input RunInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		assert.Equal(t, []StartURL{{URL: "https://shop.example/women/shoes"}}, input.StartURLs)
		assert.Equal(t, "cheerio", input.CrawlerType)
		assert.Equal(t, 5, input.MaxCrawlPages)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"run-1","status":"READY","defaultDatasetId":"ds-1"}}`))
	}))

	run, err := client.StartRun(context.Background(), "apify~website-content-crawler", RunInput{
		StartURLs:     []StartURL{{URL: "https://shop.example/women/shoes"}},
		MaxCrawlPages: 5,
		CrawlerType:   "cheerio",
	})
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, "ds-1", run.DefaultDatasetID)
	assert.False(t, run.Terminal())
}

func TestWaitForRunPollsUntilTerminal(t *testing.T) {
	t.Parallel()

	var polls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/actor-runs/run-2", r.URL.Path)
		status := RunStatusRunning
		if polls.Add(1) >= 3 {
			status = RunStatusSucceeded
		}
		_, _ = w.Write([]byte(`{"data":{"id":"run-2","status":"` + status + `","defaultDatasetId":"ds-2"}}`))
	}))

	run, err := client.WaitForRun(context.Background(), "run-2", 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, RunStatusSucceeded, run.Status)
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
}

func TestWaitForRunReportsFailedRun(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"run-3","status":"ABORTED"}}`))
	}))

	run, err := client.WaitForRun(context.Background(), "run-3", time.Millisecond)
	require.ErrorIs(t, err, ErrRunFailed)
	assert.Contains(t, err.Error(), RunStatusAborted)
	assert.Equal(t, RunStatusAborted, run.Status)
}

func TestWaitForRunHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"run-4","status":"RUNNING"}}`))
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := client.WaitForRun(ctx, "run-4", 10*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDatasetItemsDecodesOptionalFields(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/datasets/ds-5/items", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		_, _ = w.Write([]byte(`[
			{
				"url": "https://shop.example/p/1",
				"metadata": {"title": "Trail Runner"},
				"text": "Great shoe.",
				"markdown": "# Trail Runner",
				"crawl": {"depth": 1, "httpStatusCode": 200}
			},
			{"url": "https://shop.example/p/2"}
		]`))
	}))

	items, err := client.DatasetItems(context.Background(), "ds-5", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Trail Runner", items[0].Metadata.Title)
	require.NotNil(t, items[0].Crawl.Depth)
	assert.Equal(t, 1, *items[0].Crawl.Depth)
	require.NotNil(t, items[0].Crawl.HTTPStatusCode)
	assert.Equal(t, 200, *items[0].Crawl.HTTPStatusCode)

	assert.Empty(t, items[1].Text)
	assert.Nil(t, items[1].Crawl.Depth)
	assert.Nil(t, items[1].Crawl.HTTPStatusCode)
}

func TestAPIErrorIsDecodedFromErrorEnvelope(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"type":"token-not-found","message":"Authentication token is not valid"}}`))
	}))

	_, err := client.Run(context.Background(), "run-6")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "token-not-found", apiErr.Type)
	assert.Contains(t, apiErr.Message, "not valid")
}

func TestRunTerminal(t *testing.T) {
	t.Parallel()

	for status, terminal := range map[string]bool{
		RunStatusReady:     false,
		RunStatusRunning:   false,
		RunStatusSucceeded: true,
		RunStatusFailed:    true,
		RunStatusAborted:   true,
		RunStatusTimedOut:  true,
	} {
		assert.Equal(t, terminal, Run{Status: status}.Terminal(), "status %s", status)
	}
}
