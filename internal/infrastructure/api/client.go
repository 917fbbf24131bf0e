package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"nudge/internal/apperr"
	"nudge/internal/config"
	"nudge/internal/domain"
	"nudge/internal/ports"
)

const (
	userIDHeader = "X-User-Id"
	maxErrorBody = 64 << 10
)

// Client talks to the items REST backend.
type Client struct {
	baseURL string
	userID  string
	http    *http.Client
	limiter *rate.Limiter
}

var _ ports.ItemsAPI = (*Client)(nil)

// NewClient creates a reusable HTTP client. A zero RequestsPerSecond disables
// client-side rate limiting.
func NewClient(cfg config.APIConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		userID:  cfg.UserID,
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

// CreateItem submits a URL and/or pasted text.
func (c *Client) CreateItem(ctx context.Context, req domain.CreateRequest) (domain.CreatedItem, error) {
	var created domain.CreatedItem
	if err := c.do(ctx, http.MethodPost, "/items", nil, req, &created); err != nil {
		return domain.CreatedItem{}, err
	}
	return created, nil
}

// ListItems fetches one page; an empty cursor starts from the newest item.
func (c *Client) ListItems(ctx context.Context, limit int, cursor string) (domain.ListPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var page domain.ListPage
	if err := c.do(ctx, http.MethodGet, "/items", q, nil, &page); err != nil {
		return domain.ListPage{}, err
	}
	return page, nil
}

// GetItem fetches one item, optionally with its content.
func (c *Client) GetItem(ctx context.Context, id string, includeContent bool) (domain.ItemDetail, error) {
	q := url.Values{}
	q.Set("include_content", strconv.FormatBool(includeContent))

	var detail domain.ItemDetail
	if err := c.do(ctx, http.MethodGet, "/items/"+url.PathEscape(id), q, nil, &detail); err != nil {
		return domain.ItemDetail{}, err
	}
	return detail, nil
}

// PatchItemText supplies fallback text; the backend answers 409 unless the item
// is waiting for it.
func (c *Client) PatchItemText(ctx context.Context, id string, pastedText string) (domain.ItemDetail, error) {
	var detail domain.ItemDetail
	payload := domain.PatchTextRequest{PastedText: pastedText}
	if err := c.do(ctx, http.MethodPatch, "/items/"+url.PathEscape(id), nil, payload, &detail); err != nil {
		return domain.ItemDetail{}, err
	}
	return detail, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, v any) error {
	op := method + " " + path

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return apperr.Network(op, err)
		}
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != "" {
		req.Header.Set(userIDHeader, c.userID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Network(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s: %w", op, &apperr.HTTPError{
			StatusCode: resp.StatusCode,
			Detail:     apperr.ParseDetail(raw),
		})
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
