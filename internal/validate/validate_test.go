package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"https://example.com", true},
		{"http://example.com/a/b?c=d", true},
		{"  https://example.com/padded  ", true},
		{"ftp://files.example.org/x", true},
		{"example.com", false},
		{"/relative/path", false},
		{"https://", false},
		{"http:", false},
		{"https:/path-only", false},
		{"mailto:editor@example.com", true},
		{"urn:isbn:0451450523", true},
		{"file:///tmp/notes.txt", true},
		{"not a url", false},
		{"", false},
		{"http://[::1", false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, IsValidURL(tc.input), "input %q", tc.input)
	}
}

func TestNormalizeURLForDisplay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "host case and trailing slash", input: "https://Example.com/Post/", want: "https://example.com/Post"},
		{name: "fragment", input: "https://example.com/article#section1", want: "https://example.com/article"},
		{name: "root path kept", input: "https://EXAMPLE.com/", want: "https://example.com/"},
		{name: "query kept", input: "https://example.com/search/?q=Go", want: "https://example.com/search?q=Go"},
		{name: "empty path", input: "https://Example.com", want: "https://example.com"},
		{name: "repeated slashes", input: "https://example.com/a//", want: "https://example.com/a"},
		{name: "unparseable", input: "http://[::1", want: "http://[::1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeURLForDisplay(tc.input))
		})
	}
}

func TestNormalizeURLForDisplayIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"https://Example.com/Post/",
		"https://example.com/a//#x",
		"HTTP://WWW.Example.COM/Path/To/?utm=1#frag",
		"https://example.com/",
		"mailto:someone@example.com",
		"http://[::1",
		"",
	}

	for _, in := range inputs {
		once := NormalizeURLForDisplay(in)
		assert.Equal(t, once, NormalizeURLForDisplay(once), "input %q", in)
	}
}

func TestDedupeStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"b", "a", "c"}, DedupeStrings([]string{"b", "a", "b", "c", "a"}))
	assert.Empty(t, DedupeStrings(nil))
}

func TestNonEmptyTrimmed(t *testing.T) {
	t.Parallel()

	got, ok := NonEmptyTrimmed("  hello \n")
	assert.True(t, ok)
	assert.Equal(t, "hello", got)

	_, ok = NonEmptyTrimmed(" \t ")
	assert.False(t, ok)
}
