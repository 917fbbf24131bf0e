package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nudge/internal/apperr"
	"nudge/internal/domain"
)

const testConfig = `
logging:
  level: error
fake:
  queueDelay: 5ms
  processDelay: 5ms
sync:
  pollInterval: 10ms
storage:
  driver: sqlite
  dsn: %s
`

type result struct {
	code   int
	stdout string
	stderr string
}

func run(t *testing.T, args ...string) result {
	t.Helper()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "nudge.yaml")
	cfg := strings.Replace(testConfig, "%s", filepath.Join(dir, "nudge.db"), 1)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	var stdout, stderr bytes.Buffer
	full := append([]string{"--config", cfgPath, "--fake", "--no-color"}, args...)
	code := Execute(context.Background(), full, &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestSavePastedText(t *testing.T) {
	res := run(t, "save", "--text", "Notes from the design review", "--format", "json")
	require.Equal(t, 0, res.code, res.stderr)

	var created domain.CreatedItem
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.StatusSucceeded, created.Status)
}

func TestSaveLinkWaitsForProcessing(t *testing.T) {
	res := run(t, "save", "https://example.com/posts/go-iterators", "--wait", "--format", "json")
	require.Equal(t, 0, res.code, res.stderr)

	var detail domain.ItemDetail
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &detail))
	assert.Equal(t, domain.StatusSucceeded, detail.Status)
	require.NotNil(t, detail.Content)
	assert.Contains(t, detail.Content.CanonicalText, "example.com")
}

func TestSavePaywalledLinkNeedsText(t *testing.T) {
	res := run(t, "save", "https://example.com/paywall/story", "--wait")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "needs user text")
}

func TestSaveRejectsInvalidInput(t *testing.T) {
	res := run(t, "save", "not a link")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "not a valid link")

	res = run(t, "save")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "nothing to save")
}

func TestListEmptyJSON(t *testing.T) {
	res := run(t, "list", "--format", "json")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "[]\n", res.stdout)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	res := run(t, "list", "--status", "archived")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, `unknown status "archived"`)
}

func TestShowMissingItem(t *testing.T) {
	res := run(t, "show", "missing")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Item not found.")
}

func TestDigestEmptyWeek(t *testing.T) {
	res := run(t, "digest")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "# Weekly digest")
	assert.Contains(t, res.stdout, "Nothing finished processing this week yet.")
}

func TestPublishWithoutTelegram(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	res := run(t, "publish")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "no notification channel configured")

	res = run(t, "publish", "--dry-run")
	assert.Equal(t, 0, res.code, res.stderr)
}

func TestHistoryEmpty(t *testing.T) {
	res := run(t, "history", "--format", "json")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "[]\n", res.stdout)
}

func TestUnknownFormat(t *testing.T) {
	res := run(t, "list", "--format", "yaml")
	assert.Equal(t, 1, res.code)
	assert.NotEmpty(t, res.stderr)
}

func TestBuildCreateRequest(t *testing.T) {
	t.Parallel()

	req, err := buildCreateRequest([]string{" https://go.dev/blog "}, "", false, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://go.dev/blog", req.URL)

	req, err = buildCreateRequest(nil, "", true, strings.NewReader("  piped text \n"))
	require.NoError(t, err)
	assert.Equal(t, "piped text", req.PastedText)

	_, err = buildCreateRequest([]string{"https://go.dev"}, "text", false, nil)
	assert.True(t, apperr.IsValidation(err))

	_, err = buildCreateRequest(nil, "   ", false, nil)
	assert.True(t, apperr.IsValidation(err))
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	conflict := &apperr.HTTPError{StatusCode: 409, Detail: "Item is succeeded, not waiting for pasted text."}
	assert.Equal(t, "Item is not waiting for text: Item is succeeded, not waiting for pasted text.", describe(conflict))
	assert.Equal(t, "Item not found.", describe(&apperr.HTTPError{StatusCode: 404}))
	assert.Equal(t, "url: must be an absolute URL.", describe(&apperr.HTTPError{StatusCode: 422, Detail: "url: must be an absolute URL."}))
}
