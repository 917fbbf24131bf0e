// Package tui is the interactive terminal front end over a usecase.Session.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"nudge/internal/domain"
	"nudge/internal/usecase"
)

type focus int

const (
	focusInput focus = iota
	focusList
	focusDraft
)

type (
	changedMsg    struct{}
	startedMsg    struct{ err error }
	refreshedMsg  struct{ err error }
	summarizedMsg struct{ err error }
	patchedMsg    struct {
		id  string
		err error
	}
)

// Model renders one session and forwards keystrokes to it.
type Model struct {
	ctx     context.Context
	session *usecase.Session
	view    usecase.View

	urlInput  textinput.Model
	textInput textarea.Model
	draft     textarea.Model

	focus      focus
	cursor     int
	draftID    string
	showDigest bool
	clears     map[domain.InputMode]uint64

	width  int
	height int
}

// New builds the model; the session must not be started yet.
func New(ctx context.Context, session *usecase.Session) Model {
	m := Model{
		ctx:     ctx,
		session: session,
		view:    session.View(),
		clears:  map[domain.InputMode]uint64{},
		width:   80,
	}

	m.urlInput = textinput.New()
	m.urlInput.Placeholder = "Paste a link…"
	m.urlInput.Prompt = "› "
	m.urlInput.CharLimit = 2048
	m.urlInput.Width = 72
	m.urlInput.Focus()

	m.textInput = textarea.New()
	m.textInput.Placeholder = "Paste article text…"
	m.textInput.CharLimit = 0
	m.textInput.ShowLineNumbers = false
	m.textInput.SetWidth(72)
	m.textInput.SetHeight(6)

	m.draft = textarea.New()
	m.draft.Placeholder = "Paste the article text for this link…"
	m.draft.CharLimit = 0
	m.draft.ShowLineNumbers = false
	m.draft.SetWidth(72)
	m.draft.SetHeight(6)

	return m
}

// Init loads the list and starts listening for session changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange(), m.start())
}

func (m Model) waitForChange() tea.Cmd {
	ch := m.session.Changes()
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func (m Model) start() tea.Cmd {
	return func() tea.Msg {
		return startedMsg{err: m.session.Start(m.ctx)}
	}
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{err: m.session.Refresh(m.ctx, true)}
	}
}

func (m Model) summarize() tea.Cmd {
	return func() tea.Msg {
		_, err := m.session.Summarize(m.ctx)
		return summarizedMsg{err: err}
	}
}

func (m Model) submitDraft(id string) tea.Cmd {
	return func() tea.Msg {
		return patchedMsg{id: id, err: m.session.SubmitPastedText(m.ctx, id)}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		w := max(msg.Width-4, 20)
		m.urlInput.Width = w - 2
		m.textInput.SetWidth(w)
		m.draft.SetWidth(w)
		return m, nil

	case changedMsg:
		return m, tea.Batch(m.sync(), m.waitForChange())

	case startedMsg, refreshedMsg:
		return m, m.sync()

	case summarizedMsg:
		cmd := m.sync()
		m.showDigest = true
		return m, cmd

	case patchedMsg:
		cmd := m.sync()
		if msg.err == nil && msg.id == m.draftID {
			m.closeDraft()
		}
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.forward(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+r":
		if m.focus != focusDraft {
			return m, m.refresh()
		}
	}

	switch m.focus {
	case focusList:
		return m.handleListKey(msg)
	case focusDraft:
		return m.handleDraftKey(msg)
	default:
		return m.handleInputKey(msg)
	}
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		next := domain.ModeText
		if m.view.Mode == domain.ModeText {
			next = domain.ModeURL
		}
		m.session.SwitchMode(next)
		m.sync()
		return m, m.focusActiveInput()
	case "ctrl+s":
		return m, m.summarize()
	case "ctrl+l":
		m.blurInputs()
		m.focus = focusList
		return m, nil
	case "esc":
		m.dismiss()
		return m, nil
	}
	return m.forward(msg)
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.view.List.Items
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor < len(items) && items[m.cursor].Status == domain.StatusNeedsUserText {
			m.draftID = items[m.cursor].ID
			m.draft.SetValue(m.view.Drafts[m.draftID])
			m.focus = focusDraft
			return m, m.draft.Focus()
		}
	case "ctrl+s":
		return m, m.summarize()
	case "esc":
		if m.showDigest || m.view.Banner != "" || m.view.Notice != "" {
			m.dismiss()
			return m, nil
		}
		m.focus = focusInput
		return m, m.focusActiveInput()
	case "tab", "i":
		m.focus = focusInput
		return m, m.focusActiveInput()
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleDraftKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+s":
		return m, m.submitDraft(m.draftID)
	case "esc":
		m.draft.Blur()
		m.focus = focusList
		return m, nil
	}

	var cmd tea.Cmd
	before := m.draft.Value()
	m.draft, cmd = m.draft.Update(msg)
	if after := m.draft.Value(); after != before {
		m.session.SetDraft(m.draftID, after)
	}
	return m, cmd
}

// forward hands msg to the active input and reports value changes to the session.
func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.focus != focusInput {
		return m, nil
	}

	var cmd tea.Cmd
	if m.view.Mode == domain.ModeText {
		before := m.textInput.Value()
		m.textInput, cmd = m.textInput.Update(msg)
		if after := m.textInput.Value(); after != before {
			m.session.SetInput(domain.ModeText, after)
		}
		return m, cmd
	}

	before := m.urlInput.Value()
	m.urlInput, cmd = m.urlInput.Update(msg)
	if after := m.urlInput.Value(); after != before {
		m.session.SetInput(domain.ModeURL, after)
	}
	return m, cmd
}

// sync pulls a fresh view and applies input clears requested by saves. An
// input edited after the save keeps its value.
func (m *Model) sync() tea.Cmd {
	m.view = m.session.View()

	var cmd tea.Cmd
	for mode, n := range m.view.Clears {
		if n <= m.clears[mode] || !m.clearInput(mode) {
			continue
		}
		if mode == m.view.Mode && m.focus != focusDraft {
			m.focus = focusInput
			cmd = m.focusActiveInput()
		}
	}
	m.clears = m.view.Clears

	if n := len(m.view.List.Items); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	if m.focus == focusDraft {
		if it, ok := m.view.List.Find(m.draftID); !ok || it.Status != domain.StatusNeedsUserText {
			m.closeDraft()
		}
	}
	return cmd
}

func (m *Model) clearInput(mode domain.InputMode) bool {
	saved := m.view.Autosave(mode).LastSaved
	if mode == domain.ModeText {
		if m.textInput.Value() != saved {
			return false
		}
		m.textInput.Reset()
		return true
	}
	if m.urlInput.Value() != saved {
		return false
	}
	m.urlInput.SetValue("")
	return true
}

func (m *Model) dismiss() {
	switch {
	case m.view.Banner != "":
		m.session.DismissError()
	case m.view.Notice != "":
		m.session.DismissNotice()
	default:
		m.showDigest = false
	}
	m.view = m.session.View()
}

func (m *Model) closeDraft() {
	m.draft.Blur()
	m.draft.Reset()
	m.draftID = ""
	m.focus = focusList
}

func (m *Model) blurInputs() {
	m.urlInput.Blur()
	m.textInput.Blur()
}

func (m *Model) focusActiveInput() tea.Cmd {
	m.blurInputs()
	if m.view.Mode == domain.ModeText {
		return m.textInput.Focus()
	}
	return m.urlInput.Focus()
}

// Run starts the program in the alternate screen and closes the session on exit.
func Run(ctx context.Context, session *usecase.Session) error {
	defer session.Close()
	p := tea.NewProgram(New(ctx, session), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
