package fakeapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nudge/internal/apperr"
	"nudge/internal/clock"
	"nudge/internal/config"
	"nudge/internal/domain"
	"nudge/internal/infrastructure/api"
	"nudge/internal/infrastructure/fakestore"
	"nudge/internal/logging"
)

func newServer(t *testing.T) (*httptest.Server, *fakestore.Store, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC))
	store := fakestore.New(fakestore.Options{Clock: fake})
	srv := httptest.NewServer(New(store, logging.Discard()).Handler())
	t.Cleanup(func() {
		srv.Close()
		store.Close()
	})
	return srv, store, fake
}

func TestClientRoundTrip(t *testing.T) {
	t.Parallel()

	srv, _, fake := newServer(t)
	client := api.NewClient(config.APIConfig{BaseURL: srv.URL})
	ctx := context.Background()

	pasted, err := client.CreateItem(ctx, domain.CreateRequest{PastedText: "hello world"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, pasted.Status)

	detail, err := client.GetItem(ctx, pasted.ID, true)
	require.NoError(t, err)
	require.NotNil(t, detail.Content)
	assert.Equal(t, "hello world", detail.Content.CanonicalText)

	blocked, err := client.CreateItem(ctx, domain.CreateRequest{URL: "https://example.com/nope/article"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, blocked.Status)
	fake.Advance(fakestore.DefaultQueueDelay + fakestore.DefaultProcessDelay)

	patched, err := client.PatchItemText(ctx, blocked.ID, "pasted by the reader")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, patched.Status)
	assert.Equal(t, "pasted by the reader", patched.Content.UserPastedText)

	_, err = client.PatchItemText(ctx, pasted.ID, "again")
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	page, err := client.ListItems(ctx, 1, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotEmpty(t, page.NextCursor)

	next, err := client.ListItems(ctx, 1, page.NextCursor)
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.NotEqual(t, page.Items[0].ID, next.Items[0].ID)
	assert.Empty(t, next.NextCursor)

	_, err = client.GetItem(ctx, "missing", false)
	assert.True(t, apperr.IsNotFound(err))
}

func TestErrorBodies(t *testing.T) {
	t.Parallel()

	srv, _, _ := newServer(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		want   string
	}{
		{"validation list", http.MethodGet, "/items?limit=abc", "", http.StatusUnprocessableEntity, `{"detail":[{"msg":"limit: must be an integer"}]}`},
		{"store validation", http.MethodPost, "/items", `{}`, http.StatusUnprocessableEntity, `{"detail":"Provide url or pasted_text."}`},
		{"bad json", http.MethodPost, "/items", `{`, http.StatusUnprocessableEntity, `{"detail":[{"msg":"body: invalid JSON"}]}`},
		{"not found", http.MethodGet, "/items/zzz", "", http.StatusNotFound, `{"detail":"Item not found."}`},
		{"legacy patch path", http.MethodPatch, "/items/zzz/text", `{"pasted_text":"x"}`, http.StatusNotFound, `{"detail":"Item not found."}`},
		{"unknown route", http.MethodGet, "/nowhere", "", http.StatusNotFound, `{"detail":"Not Found"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var body io.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			}
			req, err := http.NewRequest(tc.method, srv.URL+tc.path, body)
			require.NoError(t, err)
			req.Header.Set("Content-Type", "application/json")

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.JSONEq(t, tc.want, string(raw))
		})
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv, _, _ := newServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	store := fakestore.New(fakestore.Options{})
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(store, logging.Discard()).Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
