// Package extract pulls the readable body out of an article page.
package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"

	"nudge/internal/apperr"
	"nudge/internal/domain"
	"nudge/internal/ports"
)

const maxPageBytes = 8 << 20

var (
	reWhitespace = regexp.MustCompile(`\s+`)
	reBlockOpen  = regexp.MustCompile(`<(p|div|br|li|td|tr|h[1-6])(\s[^>]*)?/?>`)
)

// Readability fetches a page and runs it through go-readability.
type Readability struct {
	client    *http.Client
	userAgent string
}

var _ ports.Extractor = (*Readability)(nil)

// NewReadability wires an HTTP client; nil gets a 20s timeout client.
func NewReadability(client *http.Client) *Readability {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Readability{client: client, userAgent: "nudge/1.0"}
}

// Extract downloads pageURL and returns its title and plain text.
func (r *Readability) Extract(ctx context.Context, pageURL string) (domain.Extraction, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("parse url: %w", err)
	}

	body, finalURL, err := r.fetch(ctx, pageURL)
	if err != nil {
		return domain.Extraction{}, err
	}
	if u, err := url.Parse(finalURL); err == nil {
		parsed = u
	}

	article, err := readability.FromReader(strings.NewReader(body), parsed)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("readability: %w", err)
	}

	text, err := plainText(article.Content)
	if err != nil {
		return domain.Extraction{}, err
	}
	if text == "" {
		text = bodyText(body)
	}

	title := normalize(article.Title)
	if title == "" {
		title = pageTitle(body)
	}

	return domain.Extraction{Title: title, Text: text, FinalURL: finalURL}, nil
}

// fetch returns the page decoded to UTF-8 and the URL it was served from after redirects.
func (r *Readability) fetch(ctx context.Context, pageURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", "", apperr.Network("request page", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("page returned: %w", &apperr.HTTPError{StatusCode: resp.StatusCode})
	}

	utf8Reader, err := charset.NewReader(io.LimitReader(resp.Body, maxPageBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", "", fmt.Errorf("decode charset: %w", err)
	}
	raw, err := io.ReadAll(utf8Reader)
	if err != nil {
		return "", "", fmt.Errorf("read page: %w", err)
	}
	return string(raw), resp.Request.URL.String(), nil
}

// plainText flattens readability HTML, keeping block boundaries as spaces.
func plainText(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	spaced := reBlockOpen.ReplaceAllString(content, " $0")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(spaced))
	if err != nil {
		return "", fmt.Errorf("parse content: %w", err)
	}
	return normalize(doc.Text()), nil
}

func pageTitle(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok && strings.TrimSpace(og) != "" {
		return normalize(og)
	}
	return normalize(doc.Find("title").First().Text())
}

func bodyText(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	doc.Find("script, style, nav, header, footer").Remove()
	return normalize(doc.Find("body").Text())
}

func normalize(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}
