package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nudge/internal/apperr"
	"nudge/internal/clock"
	"nudge/internal/digest"
	"nudge/internal/domain"
	"nudge/internal/infrastructure/fakestore"
	"nudge/internal/ports"
)

var sessionStart = time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC)

type fixture struct {
	clock   *clock.Fake
	store   *fakestore.Store
	session *Session
}

func newFixture(t *testing.T, wrap func(ports.ItemsAPI) ports.ItemsAPI) fixture {
	t.Helper()
	fake := clock.NewFake(sessionStart)
	store := fakestore.New(fakestore.Options{Clock: fake})
	var api ports.ItemsAPI = store
	if wrap != nil {
		api = wrap(store)
	}
	s := NewSession(SessionDeps{
		API:    api,
		Clock:  fake,
		Config: SessionConfig{Location: time.UTC},
	})
	t.Cleanup(func() {
		s.Close()
		store.Close()
	})
	return fixture{clock: fake, store: store, session: s}
}

func (f fixture) needsTextItem(t *testing.T) string {
	t.Helper()
	created, err := f.store.CreateItem(context.Background(), domain.CreateRequest{URL: "https://example.com/paywall/deep-dive"})
	require.NoError(t, err)
	f.clock.Advance(fakestore.DefaultQueueDelay + fakestore.DefaultProcessDelay)
	return created.ID
}

func TestAutosaveInsertsAndPollsUntilDone(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.session.Start(ctx))

	for _, v := range []string{"https://example.com/posts/go", "https://example.com/posts/go-iter", "https://example.com/posts/go-iterators"} {
		f.session.SetInput(domain.ModeURL, v)
		f.clock.Advance(200 * time.Millisecond)
	}
	f.clock.Advance(700 * time.Millisecond)

	v := f.session.View()
	assert.Equal(t, domain.AutosaveSaved, v.URL.State)
	assert.Equal(t, uint64(1), v.Clears[domain.ModeURL])
	require.Len(t, v.List.Items, 1)
	assert.Equal(t, "https://example.com/posts/go-iterators", v.List.Items[0].RequestedURL)
	assert.True(t, v.List.Polling)

	f.clock.Advance(5 * time.Second)
	v = f.session.View()
	require.Len(t, v.List.Items, 1)
	assert.Equal(t, domain.StatusSucceeded, v.List.Items[0].Status)
	assert.Equal(t, "Go iterators", v.List.Items[0].Title)
	assert.False(t, v.List.Polling)
	assert.Equal(t, domain.AutosaveIdle, v.URL.State)
	assert.Equal(t, 0, f.clock.Pending())
}

func TestTextModeSavesPastedText(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.session.SwitchMode(domain.ModeText)
	f.session.SetInput(domain.ModeText, "A pasted note about Go scheduling.")
	f.clock.Advance(700 * time.Millisecond)

	v := f.session.View()
	assert.Equal(t, domain.ModeText, v.Mode)
	assert.Equal(t, domain.AutosaveSaved, v.Text.State)
	require.Len(t, v.List.Items, 1)
	assert.Equal(t, domain.StatusSucceeded, v.List.Items[0].Status)
	assert.Equal(t, domain.SourcePastedText, v.List.Items[0].SourceType)
	assert.False(t, v.List.Polling)
}

func TestSwitchModeResetsLeftController(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.session.SetInput(domain.ModeURL, "https://example.com/a")
	assert.Equal(t, domain.AutosaveTyping, f.session.View().URL.State)

	f.session.SwitchMode(domain.ModeText)
	assert.Equal(t, domain.AutosaveIdle, f.session.View().URL.State)

	f.clock.Advance(time.Second)
	page, err := f.store.ListItems(context.Background(), 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestSummarizeBuildsDigest(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.store.CreateItem(ctx, domain.CreateRequest{
		PastedText: "Structured logging with slog\nThe slog package gives handlers levels and attributes. It ships in the standard library since Go 1.21.",
	})
	require.NoError(t, err)
	f.needsTextItem(t)

	require.NoError(t, f.session.Start(ctx))
	d, err := f.session.Summarize(ctx)
	require.NoError(t, err)

	require.Len(t, d.Topics, 1)
	assert.Equal(t, digest.MiscLabel, d.Topics[0].Label, "pasted items carry no title")
	assert.NotEmpty(t, d.Topics[0].Bullets)
	assert.Len(t, d.NeedsText, 1)

	v := f.session.View()
	require.NotNil(t, v.Digest)
	assert.Len(t, v.Contents, 1)
	assert.False(t, v.Summarizing)
	assert.Empty(t, v.Banner)
}

type flakyAPI struct {
	ports.ItemsAPI
	failID string
}

func (a flakyAPI) GetItem(ctx context.Context, id string, includeContent bool) (domain.ItemDetail, error) {
	if id == a.failID {
		return domain.ItemDetail{}, apperr.Network("get item", errors.New("connection reset"))
	}
	return a.ItemsAPI.GetItem(ctx, id, includeContent)
}

func TestSummarizePartialFailureShowsBanner(t *testing.T) {
	t.Parallel()

	api := &flakyAPI{}
	f := newFixture(t, func(inner ports.ItemsAPI) ports.ItemsAPI {
		api.ItemsAPI = inner
		return api
	})
	ctx := context.Background()

	ok, err := f.store.CreateItem(ctx, domain.CreateRequest{PastedText: "Working item text\nEnough words to make a bullet out of this sentence."})
	require.NoError(t, err)
	bad, err := f.store.CreateItem(ctx, domain.CreateRequest{PastedText: "Broken item text\nThis one will not load."})
	require.NoError(t, err)
	api.failID = bad.ID

	require.NoError(t, f.session.Start(ctx))
	d, err := f.session.Summarize(ctx)
	require.Error(t, err)
	require.Len(t, d.Topics, 1)
	assert.Len(t, d.Topics[0].Items, 2)

	v := f.session.View()
	assert.Contains(t, v.Banner, "Could not load 1 item(s)")
	assert.Contains(t, v.Contents, ok.ID)
	assert.NotContains(t, v.Contents, bad.ID)

	f.session.DismissError()
	assert.Empty(t, f.session.View().Banner)
}

func TestSubmitPastedTextRebuildsDigest(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.needsTextItem(t)

	require.NoError(t, f.session.Start(ctx))
	d, err := f.session.Summarize(ctx)
	require.NoError(t, err)
	assert.Empty(t, d.Topics)

	f.session.SetDraft(id, "  Deep dive into paywalled content. It explains why extraction failed here.  ")
	require.NoError(t, f.session.SubmitPastedText(ctx, id))

	v := f.session.View()
	assert.NotContains(t, v.Drafts, id)
	assert.NotContains(t, v.Submitting, id)
	item, ok := v.List.Find(id)
	require.True(t, ok)
	assert.Equal(t, domain.StatusSucceeded, item.Status)

	require.Contains(t, v.Contents, id)
	assert.Equal(t, "Deep dive into paywalled content. It explains why extraction failed here.", v.Contents[id].UserPastedText)
	require.NotNil(t, v.Digest)
	require.Len(t, v.Digest.Topics, 1)
	assert.Empty(t, v.Digest.NeedsText)
}

func TestSubmitPastedTextWithoutDigestSkipsContent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.needsTextItem(t)
	require.NoError(t, f.session.Start(ctx))

	f.session.SetDraft(id, "Some text")
	require.NoError(t, f.session.SubmitPastedText(ctx, id))

	v := f.session.View()
	assert.Nil(t, v.Digest)
	assert.Empty(t, v.Contents)
}

func TestSubmitPastedTextConflict(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	created, err := f.store.CreateItem(ctx, domain.CreateRequest{PastedText: "done already"})
	require.NoError(t, err)
	require.NoError(t, f.session.Start(ctx))

	f.session.SetDraft(created.ID, "late text")
	err = f.session.SubmitPastedText(ctx, created.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	v := f.session.View()
	assert.Equal(t, conflictNotice, v.Notice)
	assert.Equal(t, "late text", v.Drafts[created.ID])
	item, ok := v.List.Find(created.ID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusSucceeded, item.Status)

	f.session.DismissNotice()
	assert.Empty(t, f.session.View().Notice)
}

func TestSubmitPastedTextRejectsEmptyDraft(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	id := f.needsTextItem(t)

	f.session.SetDraft(id, "   ")
	err := f.session.SubmitPastedText(context.Background(), id)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	got, err := f.store.GetItem(context.Background(), id, false)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNeedsUserText, got.Status)
}

func TestCloseLeavesNoTimers(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.store.CreateItem(ctx, domain.CreateRequest{URL: "https://example.com/slow"})
	require.NoError(t, err)
	require.NoError(t, f.session.Start(ctx))
	f.session.SetInput(domain.ModeURL, "https://example.com/typing")

	f.session.Close()
	f.store.Close()
	assert.Equal(t, 0, f.clock.Pending())
}

func TestChangesCoalesce(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.session.SetInput(domain.ModeURL, "https://example.com/a")
	f.session.SetInput(domain.ModeURL, "https://example.com/ab")

	select {
	case <-f.session.Changes():
	default:
		t.Fatal("expected a change signal")
	}
	select {
	case <-f.session.Changes():
		t.Fatal("signals should coalesce")
	default:
	}
}
