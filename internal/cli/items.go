package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nudge/internal/apperr"
	"nudge/internal/domain"
	"nudge/internal/listsync"
	"nudge/internal/ports"
	"nudge/internal/validate"
)

func newSaveCmd(a *App) *cobra.Command {
	var (
		text      string
		fromStdin bool
		wait      bool
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "save [url]",
		Short: "Save a link or a piece of pasted text",
		Example: strings.TrimSpace(`
  nudge save https://go.dev/blog/range-functions
  nudge save --text "Notes from the design review"
  pbpaste | nudge save --stdin --wait
`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.printer(cmd)
			if err != nil {
				return err
			}

			req, err := buildCreateRequest(args, text, fromStdin, cmd.InOrStdin())
			if err != nil {
				return err
			}

			api := a.app.API()
			created, err := api.CreateItem(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("save item: %w", err)
			}
			if !wait {
				return p.Created(created)
			}

			detail, err := waitForItem(cmd.Context(), api, created.ID, a.cfg.Sync.PollInterval, timeout)
			if err != nil {
				return err
			}
			return p.Item(detail)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Save pasted text instead of a link")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the text to save from stdin")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the backend finishes processing")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Maximum time to wait with --wait")
	cmd.MarkFlagsMutuallyExclusive("text", "stdin")

	return cmd
}

func buildCreateRequest(args []string, text string, fromStdin bool, stdin io.Reader) (domain.CreateRequest, error) {
	if fromStdin {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return domain.CreateRequest{}, fmt.Errorf("read stdin: %w", err)
		}
		text = string(raw)
	}

	switch {
	case len(args) == 1 && (text != "" || fromStdin):
		return domain.CreateRequest{}, apperr.Validation("give either a link or text, not both")
	case len(args) == 1:
		link := strings.TrimSpace(args[0])
		if !validate.IsValidURL(link) {
			return domain.CreateRequest{}, apperr.Validation("not a valid link: %s", args[0])
		}
		return domain.CreateRequest{URL: link}, nil
	case text != "" || fromStdin:
		trimmed, ok := validate.NonEmptyTrimmed(text)
		if !ok {
			return domain.CreateRequest{}, apperr.Validation("text is empty")
		}
		return domain.CreateRequest{PastedText: trimmed}, nil
	default:
		return domain.CreateRequest{}, apperr.Validation("nothing to save: pass a link, --text or --stdin")
	}
}

// waitForItem polls until the item leaves queued/processing.
func waitForItem(ctx context.Context, api ports.ItemsAPI, id string, every, timeout time.Duration) (domain.ItemDetail, error) {
	if every <= 0 {
		every = listsync.DefaultPollInterval
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		detail, err := api.GetItem(ctx, id, true)
		if err != nil {
			return domain.ItemDetail{}, fmt.Errorf("get item %s: %w", id, err)
		}
		if !detail.Status.InProgress() {
			return detail, nil
		}
		select {
		case <-ctx.Done():
			return detail, fmt.Errorf("item %s still %s: %w", id, detail.Status, ctx.Err())
		case <-ticker.C:
		}
	}
}

func newListCmd(a *App) *cobra.Command {
	var (
		limit  int
		status string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved items, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.printer(cmd)
			if err != nil {
				return err
			}
			if status != "" && !domain.ItemStatus(status).Valid() {
				return apperr.Validation("unknown status %q", status)
			}

			sync := listsync.New(a.app.API(), listsync.Options{
				PageSize: a.cfg.Sync.PageSize,
				Timeout:  a.cfg.API.Timeout,
				Logger:   a.logger.With("component", "listsync"),
			})
			defer sync.Close()

			if err := sync.Refresh(cmd.Context(), true); err != nil {
				return fmt.Errorf("list items: %w", err)
			}

			items := filterItems(sync.Snapshot().Items, domain.ItemStatus(status))
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}
			return p.Items(items)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many items (0 = all)")
	cmd.Flags().StringVar(&status, "status", "", "Only show items with this status")

	return cmd
}

func filterItems(items []domain.Item, status domain.ItemStatus) []domain.Item {
	if status == "" {
		return items
	}
	out := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if it.Status == status {
			out = append(out, it)
		}
	}
	return out
}

func newShowCmd(a *App) *cobra.Command {
	var withContent bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.printer(cmd)
			if err != nil {
				return err
			}
			detail, err := a.app.API().GetItem(cmd.Context(), args[0], withContent)
			if err != nil {
				return fmt.Errorf("get item %s: %w", args[0], err)
			}
			return p.Item(detail)
		},
	}

	cmd.Flags().BoolVar(&withContent, "content", true, "Include the item text")

	return cmd
}

func newPatchCmd(a *App) *cobra.Command {
	var (
		text string
		file string
	)

	cmd := &cobra.Command{
		Use:   "patch <id>",
		Short: "Supply the text for an item that could not be extracted",
		Long: `Supply the text for an item whose status is needs_user_text.

The text comes from --text, --file, or stdin when neither is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.printer(cmd)
			if err != nil {
				return err
			}

			body, err := readPatchText(text, file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			trimmed, ok := validate.NonEmptyTrimmed(body)
			if !ok {
				return apperr.Validation("text is empty")
			}

			detail, err := a.app.API().PatchItemText(cmd.Context(), args[0], trimmed)
			if err != nil {
				return fmt.Errorf("patch item %s: %w", args[0], err)
			}
			p.Success("Text saved for %s", detail.ID)
			return p.Item(detail)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to attach")
	cmd.Flags().StringVar(&file, "file", "", "Read the text from a file")
	cmd.MarkFlagsMutuallyExclusive("text", "file")

	return cmd
}

func readPatchText(text, file string, stdin io.Reader) (string, error) {
	switch {
	case text != "":
		return text, nil
	case file != "":
		raw, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(raw), nil
	default:
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(raw), nil
	}
}
