package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"nudge/internal/digest"
	"nudge/internal/domain"
	"nudge/internal/validate"
)

const maxListRows = 12

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.headerView())
	b.WriteString("\n\n")
	b.WriteString(m.inputView())
	b.WriteString("\n")

	if m.view.Banner != "" {
		b.WriteString("\n" + bannerStyle.Render("! "+m.view.Banner) + mutedStyle.Render("  (esc to dismiss)") + "\n")
	}
	if m.view.Notice != "" {
		b.WriteString("\n" + noticeStyle.Render(m.view.Notice) + "\n")
	}

	b.WriteString(m.listView())

	if m.focus == focusDraft {
		b.WriteString(sectionStyle.Render("Paste text for this item"))
		b.WriteString("\n")
		b.WriteString(m.draft.View())
		b.WriteString("\n")
		if m.view.Submitting[m.draftID] {
			b.WriteString(mutedStyle.Render("Submitting…") + "\n")
		}
	}

	if m.view.Summarizing {
		b.WriteString("\n" + mutedStyle.Render("Summarizing this week…") + "\n")
	} else if m.showDigest && m.view.Digest != nil {
		b.WriteString("\n")
		b.WriteString(renderMarkdown(digest.Render(*m.view.Digest), m.width-4))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(footerStyle.Render(m.helpLine()))
	return b.String()
}

func (m Model) headerView() string {
	tabs := []string{m.tab("Link", domain.ModeURL), m.tab("Text", domain.ModeText)}
	status := m.view.Autosave(m.view.Mode)
	return lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("nudge"), "  ",
		strings.Join(tabs, " "), "  ",
		badgeStyle(status.State).Render(badgeText(status)),
	)
}

func (m Model) tab(label string, mode domain.InputMode) string {
	if m.view.Mode == mode {
		return tabActiveStyle.Render(label)
	}
	return tabStyle.Render(label)
}

func badgeText(s domain.AutosaveStatus) string {
	switch s.State {
	case domain.AutosaveTyping:
		return "typing…"
	case domain.AutosaveSaving:
		return "saving…"
	case domain.AutosaveSaved:
		return "✓ saved"
	case domain.AutosaveInvalid:
		return "not a valid link"
	case domain.AutosaveError:
		if s.Err != "" {
			return "✗ " + s.Err
		}
		return "✗ save failed"
	default:
		return ""
	}
}

func (m Model) inputView() string {
	if m.view.Mode == domain.ModeText {
		return m.textInput.View()
	}
	return m.urlInput.View()
}

func (m Model) listView() string {
	var b strings.Builder

	header := "Saved items"
	switch {
	case m.view.List.Refreshing:
		header += mutedStyle.Render("  refreshing…")
	case m.view.List.Polling:
		header += mutedStyle.Render("  updating")
	}
	b.WriteString(sectionStyle.Render(header))
	b.WriteString("\n")

	items := m.view.List.Items
	if len(items) == 0 {
		b.WriteString(mutedStyle.Render("Nothing saved yet. Paste a link or some text above.") + "\n")
		return b.String()
	}

	start := 0
	if m.cursor >= maxListRows {
		start = m.cursor - maxListRows + 1
	}
	end := min(start+maxListRows, len(items))

	now := time.Now()
	for i := start; i < end; i++ {
		it := items[i]
		marker := "  "
		if m.focus != focusInput && i == m.cursor {
			marker = cursorStyle.Render("› ")
		}
		status := statusStyle(it.Status).Render(fmt.Sprintf("%-15s", strings.ReplaceAll(string(it.Status), "_", " ")))
		line := fmt.Sprintf("%s%s %s %s", marker, status, itemLabel(it), mutedStyle.Render(ago(now, it.CreatedAt)))
		b.WriteString(line + "\n")
		if it.Status == domain.StatusNeedsUserText && i == m.cursor && m.focus == focusList {
			hint := "press enter to paste the text"
			if d := m.view.Drafts[it.ID]; d != "" {
				hint = "draft saved, press enter to edit"
			}
			b.WriteString("    " + noticeStyle.Render(hint) + "\n")
		}
	}
	if rest := len(items) - end; rest > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  … and %s", plural(rest, "more item", "more items"))) + "\n")
	}
	return b.String()
}

func itemLabel(it domain.Item) string {
	switch {
	case it.Title != "":
		return it.Title
	case it.RequestedURL != "":
		return validate.NormalizeURLForDisplay(it.RequestedURL)
	case it.SourceType == domain.SourcePastedText:
		return "Pasted text"
	default:
		return it.ID
	}
}

func ago(now, at time.Time) string {
	d := now.Sub(at)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return at.Format("Jan 2")
	}
}

func (m Model) helpLine() string {
	switch m.focus {
	case focusList:
		return "↑/↓ move  enter: paste text  ctrl+s: summarize  ctrl+r: refresh  tab: input  q: quit"
	case focusDraft:
		return "ctrl+s: submit text  esc: back"
	default:
		return "tab: switch link/text  ctrl+l: list  ctrl+s: summarize  ctrl+r: refresh  esc: dismiss  ctrl+c: quit"
	}
}
