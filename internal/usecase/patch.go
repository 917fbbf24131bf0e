package usecase

import (
	"context"
	"fmt"
	"maps"

	"nudge/internal/apperr"
	"nudge/internal/domain"
	"nudge/internal/validate"
)

const conflictNotice = "This item is no longer waiting for text. The list was refreshed."

// SubmitPastedText sends the draft of an item that needs user text.
//
// On success the draft is dropped and the list refreshed; when a digest exists,
// content is fetched for newly succeeded items missing from the cache, merged in
// and the digest rebuilt. A conflict triggers a silent refresh and a notice. The
// patch is never retried.
func (s *Session) SubmitPastedText(ctx context.Context, id string) error {
	s.mu.Lock()
	text, ok := validate.NonEmptyTrimmed(s.drafts[id])
	if !ok {
		s.notice = "Paste some text before submitting."
		s.mu.Unlock()
		s.signal()
		return apperr.Validation("pasted text for %s is empty", id)
	}
	if s.submitting[id] {
		s.mu.Unlock()
		return apperr.Validation("text for %s is already being submitted", id)
	}
	s.submitting = withFlag(s.submitting, id, true)
	s.notice = ""
	s.mu.Unlock()
	s.signal()

	_, err := s.api.PatchItemText(ctx, id, text)

	s.mu.Lock()
	s.submitting = withFlag(s.submitting, id, false)
	if err == nil {
		next := maps.Clone(s.drafts)
		delete(next, id)
		s.drafts = next
	}
	s.mu.Unlock()

	if err != nil {
		if apperr.IsConflict(err) {
			s.logger.Info("patch conflict, refreshing", "id", id)
			_ = s.list.Refresh(ctx, false)
			s.setNotice(conflictNotice)
		} else {
			s.logger.Warn("patch failed", "id", id, "error", err)
			s.setNotice(apperr.Message(err))
		}
		return fmt.Errorf("patch item %s: %w", id, err)
	}

	s.signal()
	if rErr := s.list.Refresh(ctx, false); rErr != nil {
		return nil
	}
	s.refreshDigest(ctx)
	return nil
}

// refreshDigest tops up the cache for newly succeeded items and rebuilds the
// digest. It does nothing until the first Summarize.
func (s *Session) refreshDigest(ctx context.Context) {
	s.mu.Lock()
	if s.digest == nil {
		s.mu.Unlock()
		return
	}
	cached := s.contents
	s.mu.Unlock()

	items := s.list.Snapshot().Items
	ids := succeededIDs(items, cached)
	if len(ids) == 0 {
		return
	}

	fresh, err := fetchContents(ctx, s.api, ids, s.cfg.FetchLimit)
	now := s.now()

	s.mu.Lock()
	s.contents = mergeContents(s.contents, fresh)
	contents := s.contents
	s.mu.Unlock()

	d := s.assembler.Assemble(ctx, now, items, contents)

	s.mu.Lock()
	s.digest = &d
	if err != nil {
		s.digestErr = fmt.Sprintf("Could not load %d item(s): %s", countFailures(err), apperr.Message(err))
	}
	s.mu.Unlock()
	s.signal()
}

func (s *Session) setNotice(msg string) {
	s.mu.Lock()
	s.notice = msg
	s.mu.Unlock()
	s.signal()
}

func withFlag(m map[string]bool, id string, on bool) map[string]bool {
	next := maps.Clone(m)
	if on {
		next[id] = true
	} else {
		delete(next, id)
	}
	return next
}
