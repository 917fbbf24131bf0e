// Package output formats command results for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"

	"nudge/internal/digest"
	"nudge/internal/domain"
)

// Format selects how results are printed.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts table, json or markdown; empty means table.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	default:
		return FormatTable, fmt.Errorf("invalid format %q: must be table, json or markdown", s)
	}
}

// UseColors reports whether w looks like a colour-capable terminal.
func UseColors(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// Printer writes results to out and diagnostics to err.
type Printer struct {
	out       io.Writer
	err       io.Writer
	format    Format
	useColors bool
}

// NewPrinter builds a printer; useColors only affects table output.
func NewPrinter(out, errw io.Writer, format Format, useColors bool) *Printer {
	return &Printer{out: out, err: errw, format: format, useColors: useColors}
}

// Format returns the configured output format.
func (p *Printer) Format() Format {
	return p.format
}

// Success prints a confirmation line.
func (p *Printer) Success(format string, args ...any) {
	if p.format == FormatJSON {
		return
	}
	if p.useColors {
		color.New(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.out, "✓ "+format+"\n", args...)
}

// Warn prints to the error stream.
func (p *Printer) Warn(format string, args ...any) {
	if p.useColors {
		color.New(color.FgYellow).Fprintf(p.err, "⚠ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.err, "⚠ "+format+"\n", args...)
}

// Error prints to the error stream.
func (p *Printer) Error(format string, args ...any) {
	if p.useColors {
		color.New(color.FgRed).Fprintf(p.err, "✗ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.err, "✗ "+format+"\n", args...)
}

// JSON writes v indented.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Created reports an accepted submission.
func (p *Printer) Created(created domain.CreatedItem) error {
	if p.format == FormatJSON {
		return p.JSON(created)
	}
	p.Success("saved %s (%s)", created.ID, p.Status(created.Status))
	return nil
}

// Items prints the item list.
func (p *Printer) Items(items []domain.Item) error {
	if p.format == FormatJSON {
		if items == nil {
			items = []domain.Item{}
		}
		return p.JSON(items)
	}
	if len(items) == 0 {
		fmt.Fprintln(p.out, "No items saved yet.")
		return nil
	}

	t := NewTable(p.out, []string{"id", "status", "title", "source", "saved"})
	for _, it := range items {
		t.AddRow(it.ID, p.Status(it.Status), truncate(displayTitle(it), 48), truncate(source(it), 40), it.CreatedAt.Local().Format("Mon Jan 2 15:04"))
	}
	return t.Render()
}

// Item prints one item with its content if present.
func (p *Printer) Item(detail domain.ItemDetail) error {
	if p.format == FormatJSON {
		return p.JSON(detail)
	}

	t := NewTable(p.out, nil)
	t.AddRow("ID", detail.ID)
	t.AddRow("Status", p.Status(detail.Status))
	if detail.StatusDetail != "" {
		t.AddRow("Detail", detail.StatusDetail)
	}
	t.AddRow("Title", displayTitle(detail.Item))
	if detail.RequestedURL != "" {
		t.AddRow("URL", detail.RequestedURL)
	}
	t.AddRow("Source", string(detail.SourceType))
	if detail.FinalTextSource != "" {
		t.AddRow("Text from", string(detail.FinalTextSource))
	}
	t.AddRow("Saved", detail.CreatedAt.Local().Format(time.RFC1123))
	t.AddRow("Updated", detail.UpdatedAt.Local().Format(time.RFC1123))
	if err := t.Render(); err != nil {
		return err
	}

	if detail.Content != nil {
		if text := detail.Content.BestText(""); text != "" {
			fmt.Fprintf(p.out, "\n%s\n", text)
		}
	}
	return nil
}

// Digest prints the weekly digest; table and markdown both use the Markdown rendering.
func (p *Printer) Digest(d domain.WeeklyDigest) error {
	if p.format == FormatJSON {
		return p.JSON(d)
	}
	_, err := io.WriteString(p.out, digest.Render(d))
	return err
}

// History prints past publications.
func (p *Printer) History(records []domain.PublishedDigest) error {
	if p.format == FormatJSON {
		if records == nil {
			records = []domain.PublishedDigest{}
		}
		return p.JSON(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(p.out, "Nothing published yet.")
		return nil
	}
	t := NewTable(p.out, []string{"week", "topics", "items", "published"})
	for _, r := range records {
		t.AddRow(r.WeekKey, fmt.Sprint(r.Topics), fmt.Sprint(r.Items), r.PublishedAt.Local().Format(time.RFC1123))
	}
	return t.Render()
}

// Status renders a status label, coloured when enabled.
func (p *Printer) Status(s domain.ItemStatus) string {
	label := strings.ReplaceAll(string(s), "_", " ")
	if !p.useColors {
		return label
	}
	switch s {
	case domain.StatusSucceeded:
		return color.GreenString(label)
	case domain.StatusFailed:
		return color.RedString(label)
	case domain.StatusNeedsUserText:
		return color.YellowString(label)
	default:
		return color.CyanString(label)
	}
}

func displayTitle(it domain.Item) string {
	if it.Title != "" {
		return it.Title
	}
	if it.RequestedURL != "" {
		return it.RequestedURL
	}
	return "(untitled)"
}

func source(it domain.Item) string {
	if it.RequestedURL != "" {
		return it.RequestedURL
	}
	return string(it.SourceType)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit-1]) + "…"
}
