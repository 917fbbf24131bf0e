package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nudge/internal/config"
)

func newTestSummarizer(t *testing.T, h http.HandlerFunc) *ChatGPTSummarizer {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewChatGPTSummarizer(config.ChatGPTConfig{Endpoint: srv.URL, Model: "gpt-test", APIKey: "key"})
}

func TestBulletsParsesReply(t *testing.T) {
	t.Parallel()

	s := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing bearer token")
		}
		var body struct {
			Model    string        `json:"model"`
			Messages []chatMessage `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Model != "gpt-test" || len(body.Messages) != 2 {
			t.Errorf("unexpected request: %+v", body)
		}
		if !strings.HasPrefix(body.Messages[1].Content, "Topic: Go Iterators") {
			t.Errorf("topic missing from prompt: %q", body.Messages[1].Content)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Here you go:\n- Yield drives the loop\n- Early exit is cheap\n"}}]}`))
	})

	bullets, err := s.Bullets(context.Background(), "Go Iterators", "text")
	if err != nil {
		t.Fatalf("bullets: %v", err)
	}
	if len(bullets) != 2 || bullets[0] != "Yield drives the loop" || bullets[1] != "Early exit is cheap" {
		t.Fatalf("unexpected bullets: %#v", bullets)
	}
	if s.Name() != "chatgpt" {
		t.Fatalf("unexpected name %s", s.Name())
	}
}

func TestBulletsErrors(t *testing.T) {
	t.Parallel()

	failing := newTestSummarizer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	})
	if _, err := failing.Bullets(context.Background(), "x", "y"); err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status error, got %v", err)
	}

	empty := newTestSummarizer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	if _, err := empty.Bullets(context.Background(), "x", "y"); err == nil {
		t.Fatal("expected error for empty choices")
	}

	unconfigured := NewChatGPTSummarizer(config.ChatGPTConfig{})
	if _, err := unconfigured.Bullets(context.Background(), "x", "y"); err == nil {
		t.Fatal("expected misconfiguration error")
	}
}

func TestParseBullets(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		reply string
		want  []string
	}{
		{"dashes", "- a\n- b", []string{"a", "b"}},
		{"numbered", "1. first\n2) second\n10. tenth", []string{"first", "second", "tenth"}},
		{"mixed markers", "* one\n• two", []string{"one", "two"}},
		{"plain lines", "alpha\n\nbeta", []string{"alpha", "beta"}},
		{"capped", "- 1\n- 2\n- 3\n- 4\n- 5", []string{"1", "2", "3", "4"}},
		{"empty", "  \n", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := parseBullets(tc.reply)
			if strings.Join(got, "|") != strings.Join(tc.want, "|") || len(got) != len(tc.want) {
				t.Fatalf("got %#v, want %#v", got, tc.want)
			}
		})
	}
}
