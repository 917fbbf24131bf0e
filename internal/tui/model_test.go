package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nudge/internal/clock"
	"nudge/internal/domain"
	"nudge/internal/infrastructure/fakestore"
	"nudge/internal/logging"
	"nudge/internal/usecase"
)

type harness struct {
	clock *clock.Fake
	store *fakestore.Store
	model Model
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := clock.NewFake(time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC))
	store := fakestore.New(fakestore.Options{Clock: fake})
	session := usecase.NewSession(usecase.SessionDeps{
		API:    store,
		Clock:  fake,
		Logger: logging.Discard(),
		Config: usecase.SessionConfig{Location: time.UTC},
	})
	t.Cleanup(func() {
		session.Close()
		store.Close()
	})
	return &harness{clock: fake, store: store, model: New(context.Background(), session)}
}

func (h *harness) send(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	return cmd
}

// run executes cmd and feeds its message back, as the tea runtime would.
func (h *harness) run(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	h.send(t, cmd())
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	h.run(t, h.model.start())
}

func (h *harness) session() *usecase.Session {
	return h.model.session
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTypingLinkAutosavesAndClearsInput(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.start(t)

	h.send(t, keys("https://example.com/posts/go-iterators"))
	assert.Equal(t, domain.AutosaveTyping, h.model.session.View().URL.State)
	assert.Contains(t, h.model.View(), "typing…")

	h.clock.Advance(700 * time.Millisecond)
	h.send(t, changedMsg{})

	assert.Empty(t, h.model.urlInput.Value(), "input cleared after save")
	assert.True(t, h.model.urlInput.Focused())
	assert.Equal(t, domain.AutosaveSaved, h.model.view.URL.State)
	require.Len(t, h.model.view.List.Items, 1)
	assert.Equal(t, "https://example.com/posts/go-iterators", h.model.view.List.Items[0].RequestedURL)
	assert.Contains(t, h.model.View(), "✓ saved")
}

func TestSaveRefocusesInputFromList(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.start(t)

	h.send(t, keys("https://example.com/posts/go-iterators"))
	h.send(t, tea.KeyMsg{Type: tea.KeyCtrlL})
	require.Equal(t, focusList, h.model.focus)
	assert.False(t, h.model.urlInput.Focused())

	h.clock.Advance(700 * time.Millisecond)
	h.send(t, changedMsg{})

	assert.Equal(t, focusInput, h.model.focus)
	assert.True(t, h.model.urlInput.Focused())
	assert.Empty(t, h.model.urlInput.Value())
}

func TestKeystrokeAfterSaveIsKept(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.start(t)

	const link = "https://example.com/posts/go-iterators"
	h.send(t, keys(link))
	h.clock.Advance(700 * time.Millisecond)
	require.Equal(t, link, h.session().View().URL.LastSaved)

	// typed before the view learned about the save
	h.send(t, keys("x"))
	h.send(t, changedMsg{})

	assert.Equal(t, link+"x", h.model.urlInput.Value())
	assert.Equal(t, domain.AutosaveTyping, h.model.view.URL.State)

	h.clock.Advance(700 * time.Millisecond)
	h.send(t, changedMsg{})
	assert.Empty(t, h.model.urlInput.Value(), "the follow-up save clears normally")
	assert.Len(t, h.model.view.List.Items, 2)
}

func TestTabSwitchesMode(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.send(t, keys("https://exa"))
	h.send(t, tea.KeyMsg{Type: tea.KeyTab})

	assert.Equal(t, domain.ModeText, h.model.session.Mode())
	assert.Equal(t, domain.AutosaveIdle, h.model.view.URL.State, "leaving a mode resets it")
	assert.True(t, h.model.textInput.Focused())

	h.send(t, keys("Some pasted notes"))
	assert.Equal(t, "Some pasted notes", h.model.textInput.Value())
	assert.Equal(t, domain.AutosaveTyping, h.model.session.View().Text.State)
}

func TestDraftSubmitPatchesItem(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	created, err := h.store.CreateItem(context.Background(), domain.CreateRequest{URL: "https://example.com/paywall/story"})
	require.NoError(t, err)
	h.clock.Advance(fakestore.DefaultQueueDelay + fakestore.DefaultProcessDelay)
	h.start(t)

	h.send(t, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Equal(t, focusList, h.model.focus)
	assert.Contains(t, h.model.View(), "press enter to paste the text")

	h.send(t, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, focusDraft, h.model.focus)
	assert.Equal(t, created.ID, h.model.draftID)

	h.send(t, keys("The full article text."))
	assert.Equal(t, "The full article text.", h.model.session.View().Drafts[created.ID])

	h.run(t, h.send(t, tea.KeyMsg{Type: tea.KeyCtrlS}))

	assert.Equal(t, focusList, h.model.focus)
	assert.Empty(t, h.model.draftID)
	it, ok := h.model.view.List.Find(created.ID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusSucceeded, it.Status)
}

func TestSummarizeShowsDigestAndEscHides(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, err := h.store.CreateItem(context.Background(), domain.CreateRequest{PastedText: "Go iterators in depth. Yield functions drive range loops over sequences."})
	require.NoError(t, err)
	h.start(t)

	h.run(t, h.send(t, tea.KeyMsg{Type: tea.KeyCtrlS}))
	assert.True(t, h.model.showDigest)
	require.NotNil(t, h.model.view.Digest)
	assert.Len(t, h.model.view.Digest.Topics, 1)

	h.send(t, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, h.model.showDigest)
}

func TestListNavigationClamps(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	for _, text := range []string{"first note", "second note"} {
		_, err := h.store.CreateItem(context.Background(), domain.CreateRequest{PastedText: text})
		require.NoError(t, err)
		h.clock.Advance(time.Second)
	}
	h.start(t)

	h.send(t, tea.KeyMsg{Type: tea.KeyCtrlL})
	h.send(t, keys("j"))
	h.send(t, keys("j"))
	assert.Equal(t, 1, h.model.cursor)
	h.send(t, keys("k"))
	h.send(t, keys("k"))
	assert.Equal(t, 0, h.model.cursor)

	h.send(t, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusInput, h.model.focus)
}

func TestEmptyListMessage(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.start(t)
	assert.True(t, strings.Contains(h.model.View(), "Nothing saved yet"))
}
