package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nudge/internal/domain"
)

func sampleItems() []domain.Item {
	at := time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC)
	return []domain.Item{
		{ID: "a1", Status: domain.StatusSucceeded, SourceType: domain.SourceURL, RequestedURL: "https://go.dev/blog/range-functions", Title: "Range over function types", CreatedAt: at},
		{ID: "b2", Status: domain.StatusNeedsUserText, SourceType: domain.SourceURL, RequestedURL: "https://example.com/paywall/story", CreatedAt: at},
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Format{"": FormatTable, "TABLE": FormatTable, "json": FormatJSON, "md": FormatMarkdown} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("yaml")
	assert.Error(t, err)
}

func TestItemsTable(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := NewPrinter(&out, &out, FormatTable, false)
	require.NoError(t, p.Items(sampleItems()))

	text := out.String()
	assert.Contains(t, text, "STATUS")
	assert.Contains(t, text, "Range over function types")
	assert.Contains(t, text, "needs user text")
	assert.Contains(t, text, "https://example.com/paywall/story")
}

func TestItemsJSON(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := NewPrinter(&out, &out, FormatJSON, false)
	require.NoError(t, p.Items(nil))
	assert.Equal(t, "[]\n", out.String())

	out.Reset()
	require.NoError(t, p.Items(sampleItems()))
	var decoded []domain.Item
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Len(t, decoded, 2)
}

func TestItemShowsContent(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := NewPrinter(&out, &out, FormatTable, false)
	detail := domain.ItemDetail{Item: sampleItems()[0], Content: &domain.ItemContent{CanonicalText: "The body text."}}
	require.NoError(t, p.Item(detail))
	assert.True(t, strings.HasSuffix(out.String(), "\nThe body text.\n"))
}

func TestDigestMarkdown(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := NewPrinter(&out, &out, FormatMarkdown, false)
	d := domain.WeeklyDigest{
		WeekStart: time.Date(2026, time.October, 11, 0, 0, 0, 0, time.UTC),
		WeekEnd:   time.Date(2026, time.October, 17, 23, 59, 59, 0, time.UTC),
		Topics:    []domain.Topic{{Label: "Go", Bullets: []string{"point"}}},
	}
	require.NoError(t, p.Digest(d))
	assert.Contains(t, out.String(), "## Go")
}

func TestSuccessSilentForJSON(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	NewPrinter(&out, &out, FormatJSON, false).Success("done")
	assert.Empty(t, out.String())

	NewPrinter(&out, &out, FormatTable, false).Success("done %d", 1)
	assert.Equal(t, "✓ done 1\n", out.String())
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
