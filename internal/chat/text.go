package chat

import (
	"regexp"
	"strings"
)

var (
	headingRe = regexp.MustCompile(`^\s*#{1,6}\s*(.*)$`)
	bulletRe  = regexp.MustCompile(`^\s*[*-]\s*(.*)$`)
)

// NormalizeChatText strips Markdown artifacts out of a synthesized answer so
// it renders cleanly in a plain-text chat widget: bold markers are removed,
// headings become plain lines, list bullets become "—" and runs of blank
// lines collapse to one.
func NormalizeChatText(text string) string {
	if text == "" {
		return ""
	}

	cleaned := strings.ReplaceAll(text, "**", "")
	cleaned = strings.ReplaceAll(cleaned, "__", "")

	var lines []string
	previousBlank := false

	for _, raw := range strings.Split(cleaned, "\n") {
		line := normalizeLine(raw)

		if line == "" {
			if previousBlank {
				continue
			}
			previousBlank = true
			lines = append(lines, "")
			continue
		}
		lines = append(lines, line)
		previousBlank = false
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func normalizeLine(line string) string {
	stripped := strings.TrimRight(line, " \t")

	if m := headingRe.FindStringSubmatch(stripped); m != nil {
		stripped = m[1]
	}
	if m := bulletRe.FindStringSubmatch(stripped); m != nil && strings.TrimSpace(m[1]) != "" {
		return "— " + strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(stripped)
}
