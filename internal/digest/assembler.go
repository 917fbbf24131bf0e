// Package digest builds the weekly topic digest from the local item list and
// content cache.
package digest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"nudge/internal/domain"
	"nudge/internal/validate"
	"nudge/internal/window"
)

// Assembler groups this week's succeeded items into labelled topics.
type Assembler struct {
	labeler    Labeler
	summarizer Summarizer
	logger     *slog.Logger
}

// NewAssembler wires the strategies. Nil strategies fall back to the heuristics.
func NewAssembler(labeler Labeler, summarizer Summarizer, logger *slog.Logger) *Assembler {
	if labeler == nil {
		labeler = NewHeuristicLabeler(nil)
	}
	if summarizer == nil {
		summarizer = HeuristicSummarizer{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{labeler: labeler, summarizer: summarizer, logger: logger}
}

type bucket struct {
	label   string
	members []domain.Item
}

// Assemble derives a fresh digest. contents is keyed by item id and is only read.
func (a *Assembler) Assemble(ctx context.Context, now time.Time, items []domain.Item, contents map[string]domain.ItemContent) domain.WeeklyDigest {
	week, inWindow := window.Filter(items, now)

	digest := domain.WeeklyDigest{
		WeekStart:   week.Start,
		WeekEnd:     week.End,
		GeneratedAt: now,
	}

	var buckets []*bucket
	byLabel := map[string]*bucket{}
	for _, it := range inWindow {
		switch {
		case it.Status == domain.StatusSucceeded:
			label := a.labeler.Label(it)
			b, ok := byLabel[label]
			if !ok {
				b = &bucket{label: label}
				byLabel[label] = b
				buckets = append(buckets, b)
			}
			b.members = append(b.members, it)
		case it.Status.InProgress():
			digest.InProgress = append(digest.InProgress, it)
		case it.Status == domain.StatusNeedsUserText:
			digest.NeedsText = append(digest.NeedsText, it)
		}
	}

	digest.Topics = make([]domain.Topic, 0, len(buckets))
	for _, b := range buckets {
		text := combinedText(b.members, contents)
		digest.Topics = append(digest.Topics, domain.Topic{
			Label:   b.label,
			Items:   b.members,
			Bullets: a.bullets(ctx, b.label, text),
			Sources: sources(b.members),
		})
	}

	return digest
}

func (a *Assembler) bullets(ctx context.Context, label, text string) []string {
	bullets, err := a.summarizer.Bullets(ctx, label, text)
	if err == nil && len(bullets) > 0 {
		return bullets
	}
	if err != nil {
		a.logger.Warn("summarizer failed, using heuristic bullets",
			"summarizer", a.summarizer.Name(), "topic", label, "error", err)
	}
	return Bullets(text)
}

// combinedText joins the best text of each member whose content was fetched.
func combinedText(members []domain.Item, contents map[string]domain.ItemContent) string {
	parts := make([]string, 0, len(members))
	for _, m := range members {
		content, ok := contents[m.ID]
		if !ok {
			continue
		}
		if text := strings.TrimSpace(content.BestText(m.Title)); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func sources(members []domain.Item) []string {
	urls := make([]string, 0, len(members))
	for _, m := range members {
		if u, ok := validate.NonEmptyTrimmed(m.RequestedURL); ok {
			urls = append(urls, validate.NormalizeURLForDisplay(u))
		}
	}
	return validate.DedupeStrings(urls)
}
