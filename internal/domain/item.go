package domain

import "time"

// ItemStatus enumerates the server-side processing lifecycle of an item.
type ItemStatus string

const (
	StatusQueued        ItemStatus = "queued"
	StatusProcessing    ItemStatus = "processing"
	StatusSucceeded     ItemStatus = "succeeded"
	StatusNeedsUserText ItemStatus = "needs_user_text"
	StatusFailed        ItemStatus = "failed"
)

// InProgress reports whether the server still owes work on the item.
func (s ItemStatus) InProgress() bool {
	return s == StatusQueued || s == StatusProcessing
}

// Terminal reports whether the status will not change without user action.
func (s ItemStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusNeedsUserText || s == StatusFailed
}

// Valid reports whether s is one of the known statuses.
func (s ItemStatus) Valid() bool {
	return s.InProgress() || s.Terminal()
}

// SourceType tells how the item was submitted.
type SourceType string

const (
	SourceURL        SourceType = "url"
	SourcePastedText SourceType = "pasted_text"
)

// FinalTextSource records where the canonical text came from.
type FinalTextSource string

const (
	TextFromURL        FinalTextSource = "extracted_from_url"
	TextFromUserPasted FinalTextSource = "user_pasted_text"
)

// Item is one saved piece of content, owned by the server and cached locally.
type Item struct {
	ID              string          `json:"id"`
	Status          ItemStatus      `json:"status"`
	StatusDetail    string          `json:"status_detail,omitempty"`
	SourceType      SourceType      `json:"source_type"`
	RequestedURL    string          `json:"requested_url,omitempty"`
	FinalTextSource FinalTextSource `json:"final_text_source,omitempty"`
	Title           string          `json:"title,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ItemContent holds the text bodies fetched on demand for an item.
type ItemContent struct {
	CanonicalText  string    `json:"canonical_text,omitempty"`
	ExtractedText  string    `json:"extracted_text,omitempty"`
	UserPastedText string    `json:"user_pasted_text,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// BestText returns the most authoritative non-empty body, falling back to title.
func (c ItemContent) BestText(title string) string {
	switch {
	case c.CanonicalText != "":
		return c.CanonicalText
	case c.UserPastedText != "":
		return c.UserPastedText
	case c.ExtractedText != "":
		return c.ExtractedText
	default:
		return title
	}
}

// ItemDetail is an item plus its content when it was requested.
type ItemDetail struct {
	Item
	Content *ItemContent `json:"content,omitempty"`
}

// CreateRequest is the payload for submitting new content.
type CreateRequest struct {
	URL              string `json:"url,omitempty"`
	PastedText       string `json:"pasted_text,omitempty"`
	PreferPastedText bool   `json:"prefer_pasted_text,omitempty"`
}

// CreatedItem is the server acknowledgement of a create call.
type CreatedItem struct {
	ID     string     `json:"id"`
	Status ItemStatus `json:"status"`
}

// ListPage is a single page of the item collection.
type ListPage struct {
	Items      []Item `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// PatchTextRequest supplies fallback text for an item that failed extraction.
type PatchTextRequest struct {
	PastedText string `json:"pasted_text"`
}

// Extraction is the readable text pulled from a fetched page.
type Extraction struct {
	Title    string
	Text     string
	FinalURL string
}
