package ports

import (
	"context"
	"time"

	"nudge/internal/domain"
)

// ItemsAPI is the backend contract consumed by the engine (real REST client or fake store).
type ItemsAPI interface {
	CreateItem(ctx context.Context, req domain.CreateRequest) (domain.CreatedItem, error)
	ListItems(ctx context.Context, limit int, cursor string) (domain.ListPage, error)
	GetItem(ctx context.Context, id string, includeContent bool) (domain.ItemDetail, error)
	PatchItemText(ctx context.Context, id string, pastedText string) (domain.ItemDetail, error)
}

// Extractor pulls readable text out of a web page for the simulated backend.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) (domain.Extraction, error)
}

// DigestLog remembers which weekly digests were already published.
type DigestLog interface {
	AlreadyPublished(ctx context.Context, weekKey string) (bool, error)
	SavePublished(ctx context.Context, rec domain.PublishedDigest) error
}

// Notifier streams rendered digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when the publishing job executes.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
