package llm

import "strings"

// StripFences trims whitespace and unwraps a markdown code fence (``` or
// ```markdown) only when it encloses the whole reply. Anything else is
// returned trimmed but otherwise unchanged.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	last := len(lines) - 1
	if last < 1 || strings.TrimSpace(lines[last]) != "```" {
		return text
	}
	for _, l := range lines[1:last] {
		if strings.HasPrefix(strings.TrimSpace(l), "```") {
			return text
		}
	}
	return strings.TrimSpace(strings.Join(lines[1:last], "\n"))
}
