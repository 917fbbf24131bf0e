package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nudge/internal/digest"
	"nudge/internal/domain"
	"nudge/internal/listsync"
	"nudge/internal/ports"
	"nudge/internal/window"
	"nudge/internal/workpool"
)

// PipelineDeps wires all driven adapters into the weekly publishing pipeline.
type PipelineDeps struct {
	API        ports.ItemsAPI
	Assembler  *digest.Assembler
	Log        ports.DigestLog
	Notifier   ports.Notifier
	PageSize   int
	FetchLimit int
	Logger     *slog.Logger
}

// Pipeline implements the headless digest workflow.
type Pipeline struct {
	api        ports.ItemsAPI
	assembler  *digest.Assembler
	log        ports.DigestLog
	notifier   ports.Notifier
	pageSize   int
	fetchLimit int
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	assembler := deps.Assembler
	if assembler == nil {
		assembler = digest.NewAssembler(nil, nil, logger)
	}
	fetchLimit := deps.FetchLimit
	if fetchLimit <= 0 {
		fetchLimit = workpool.DefaultLimit
	}
	return &Pipeline{
		api:        deps.API,
		assembler:  assembler,
		log:        deps.Log,
		notifier:   deps.Notifier,
		pageSize:   deps.PageSize,
		fetchLimit: fetchLimit,
		logger:     logger,
	}
}

// Build loads the list and content and assembles the digest of now's week.
// Content failures are returned alongside the partial digest.
func (p *Pipeline) Build(ctx context.Context, now time.Time) (domain.WeeklyDigest, error) {
	if p.api == nil {
		return domain.WeeklyDigest{}, fmt.Errorf("pipeline has no backend")
	}

	list := listsync.New(p.api, listsync.Options{PageSize: p.pageSize, Logger: p.logger})
	defer list.Close()
	if err := list.Refresh(ctx, false); err != nil {
		return domain.WeeklyDigest{}, fmt.Errorf("load items: %w", err)
	}
	items := list.Snapshot().Items

	_, inWindow := window.Filter(items, now)
	contents, err := fetchContents(ctx, p.api, succeededIDs(inWindow, nil), p.fetchLimit)
	if err != nil {
		p.logger.Warn("some item content could not be loaded", "error", err)
	}

	return p.assembler.Assemble(ctx, now, items, contents), err
}

// ProcessWeek builds the digest for now's week and publishes it once.
func (p *Pipeline) ProcessWeek(ctx context.Context, now time.Time) error {
	key := window.Bounds(now).Key()

	if p.log != nil {
		done, err := p.log.AlreadyPublished(ctx, key)
		if err != nil {
			return fmt.Errorf("load publish log: %w", err)
		}
		if done {
			p.logger.Info("digest already published", "week", key)
			return nil
		}
	}

	d, err := p.Build(ctx, now)
	if err != nil && len(d.Topics) == 0 {
		return fmt.Errorf("build digest: %w", err)
	}
	if d.Empty() {
		p.logger.Info("nothing to publish", "week", key)
		return nil
	}

	if p.notifier == nil {
		return nil
	}

	if err := p.notifier.PublishDigest(ctx, digest.Render(d)); err != nil {
		return fmt.Errorf("publish digest: %w", err)
	}

	if p.log == nil {
		return nil
	}

	err = p.log.SavePublished(ctx, domain.PublishedDigest{
		WeekKey:     key,
		Topics:      len(d.Topics),
		Items:       countItems(d),
		PublishedAt: now,
	})
	if err != nil {
		return fmt.Errorf("persist publication %s: %w", key, err)
	}

	p.logger.Info("digest published", "week", key, "topics", len(d.Topics))
	return nil
}

func countItems(d domain.WeeklyDigest) int {
	n := 0
	for _, t := range d.Topics {
		n += len(t.Items)
	}
	return n
}
