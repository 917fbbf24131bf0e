package digest

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"nudge/internal/domain"
)

// MiscLabel is used when neither the title nor the URL yields a label.
const MiscLabel = "Misc"

const (
	maxLabelWords = 4
	minLabelWords = 2
)

// DefaultStopwords are the articles, conjunctions and prepositions dropped from titles.
var DefaultStopwords = []string{
	"a", "an", "the",
	"and", "or", "but", "nor", "so", "yet",
	"of", "in", "on", "at", "to", "for", "from", "by", "with", "about",
	"as", "into", "over", "after", "before", "under", "between", "through",
	"vs", "via",
}

// Labeler assigns a topic label to an item.
type Labeler interface {
	Label(item domain.Item) string
}

// HeuristicLabeler derives a label from the title words or the URL domain.
type HeuristicLabeler struct {
	stopwords map[string]struct{}
}

var _ Labeler = (*HeuristicLabeler)(nil)

// NewHeuristicLabeler builds a labeler; an empty list falls back to DefaultStopwords.
func NewHeuristicLabeler(stopwords []string) *HeuristicLabeler {
	if len(stopwords) == 0 {
		stopwords = DefaultStopwords
	}
	set := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return &HeuristicLabeler{stopwords: set}
}

func (l *HeuristicLabeler) Label(item domain.Item) string {
	if label, ok := l.fromTitle(item.Title); ok {
		return label
	}
	if label, ok := domainLabel(item.RequestedURL); ok {
		return label
	}
	return MiscLabel
}

func (l *HeuristicLabeler) fromTitle(title string) (string, bool) {
	kept := make([]string, 0, maxLabelWords)
	for _, w := range strings.Fields(title) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if w == "" {
			continue
		}
		if _, stop := l.stopwords[strings.ToLower(w)]; stop {
			continue
		}
		kept = append(kept, titleCase(w))
		if len(kept) == maxLabelWords {
			break
		}
	}
	if len(kept) < minLabelWords {
		return "", false
	}
	return strings.Join(kept, " "), true
}

// domainLabel returns the second-to-last dot label of the host, www. stripped.
func domainLabel(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	parts := strings.Split(host, ".")
	seg := parts[0]
	if len(parts) >= 2 {
		seg = parts[len(parts)-2]
	}
	if seg == "" {
		return "", false
	}
	return titleCase(seg), true
}

func titleCase(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError {
		return word
	}
	return string(unicode.ToUpper(r)) + word[size:]
}
