package code_modifier

import "strings"

// ExtractCode recovers the code payload from an oracle response. The first
// fenced block wins; an unterminated fence runs to the end of the response.
// A response without fences is used as-is. Leading and trailing blank lines
// are dropped but indentation is kept.
func ExtractCode(response string) string {
	lines := strings.Split(strings.ReplaceAll(response, "\r\n", "\n"), "\n")

	start := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			start = i
			break
		}
	}
	if start < 0 {
		return trimBlankLines(lines)
	}

	var body []string
	for _, line := range lines[start+1:] {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			break
		}
		body = append(body, line)
	}
	return trimBlankLines(body)
}

func trimBlankLines(lines []string) string {
	first, last := 0, len(lines)
	for first < last && strings.TrimSpace(lines[first]) == "" {
		first++
	}
	for last > first && strings.TrimSpace(lines[last-1]) == "" {
		last--
	}
	return strings.Join(lines[first:last], "\n")
}
