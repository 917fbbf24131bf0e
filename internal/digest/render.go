package digest

import (
	"fmt"
	"strings"

	"nudge/internal/domain"
)

// Render formats the digest as Markdown.
func Render(d domain.WeeklyDigest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Weekly digest, %s to %s\n\n",
		d.WeekStart.Format("Jan 2"), d.WeekEnd.Format("Jan 2, 2006"))

	if d.Empty() {
		b.WriteString("Nothing finished processing this week yet.\n")
	}

	for _, topic := range d.Topics {
		fmt.Fprintf(&b, "## %s\n\n", topic.Label)
		for _, bullet := range topic.Bullets {
			fmt.Fprintf(&b, "- %s\n", bullet)
		}
		if len(topic.Sources) > 0 {
			b.WriteString("\n**Sources**\n\n")
			for _, src := range topic.Sources {
				fmt.Fprintf(&b, "- <%s>\n", src)
			}
		}
		b.WriteString("\n")
	}

	if n := len(d.InProgress); n > 0 {
		fmt.Fprintf(&b, "_%d %s still processing._\n", n, plural(n, "item", "items"))
	}
	if n := len(d.NeedsText); n > 0 {
		fmt.Fprintf(&b, "_%d %s pasted text._\n", n, plural(n, "item needs", "items need"))
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
