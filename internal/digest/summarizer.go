package digest

import (
	"context"
	"strings"
	"unicode"
)

const (
	maxBullets        = 4
	minBullets        = 2
	minSentenceRunes  = 20
	chunkThreshold    = 200
	chunkCount        = 3
	truncateThreshold = 100
	truncateRunes     = 150
	ellipsis          = "..."
)

// Summarizer turns the combined text of a topic into bullet points.
type Summarizer interface {
	Name() string
	Bullets(ctx context.Context, label, text string) ([]string, error)
}

// HeuristicSummarizer derives bullets from sentence boundaries. It is pure.
type HeuristicSummarizer struct{}

var _ Summarizer = HeuristicSummarizer{}

func (HeuristicSummarizer) Name() string { return "heuristic" }

func (HeuristicSummarizer) Bullets(_ context.Context, _ string, text string) ([]string, error) {
	return Bullets(text), nil
}

// Bullets keeps up to four sentences longer than twenty characters. With fewer
// than two such sentences, long text is cut into three equal chunks and short
// text becomes a single, possibly truncated, bullet.
func Bullets(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var bullets []string
	for _, s := range splitSentences(text) {
		if len([]rune(s)) > minSentenceRunes {
			bullets = append(bullets, s)
			if len(bullets) == maxBullets {
				break
			}
		}
	}
	if len(bullets) >= minBullets {
		return bullets
	}

	runes := []rune(text)
	if len(runes) > chunkThreshold {
		return chunk(runes, chunkCount)
	}
	if len(runes) > truncateThreshold {
		return []string{string(runes[:min(truncateRunes, len(runes))]) + ellipsis}
	}
	return []string{text}
}

// splitSentences breaks after '.', '!' or '?' when followed by whitespace.
func splitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func chunk(runes []rune, parts int) []string {
	size := (len(runes) + parts - 1) / parts
	out := make([]string, 0, parts)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
	}
	return out
}
