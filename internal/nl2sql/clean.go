package nl2sql

import "strings"

const fence = "```"

// CleanSQL strips a markdown code fence from model output. When prose
// surrounds a fenced block, the first block's body wins. A lone closing fence
// keeps the text before it. Backticks inside the body are kept.
func CleanSQL(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}

	open := strings.Index(text, fence)
	if open < 0 {
		return text
	}
	if open > 0 && !isOpeningFence(text[open:]) {
		if end := closingFence(text); end >= 0 {
			return strings.TrimSpace(text[:end])
		}
		return text
	}
	text = text[open:]

	// Drop the opening fence line along with its language tag.
	var body string
	if newline := strings.IndexByte(text, '\n'); newline >= 0 {
		body = text[newline+1:]
	} else {
		body = strings.TrimPrefix(text, fence)
		if !strings.HasSuffix(body, fence) {
			// "```SELECT 1" style output with no newline after the fence.
			return strings.TrimSpace(trimLanguageTag(body))
		}
		return strings.TrimSpace(trimLanguageTag(strings.TrimSuffix(body, fence)))
	}

	if end := closingFence(body); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// closingFence finds a fence that sits alone on its line. Fences embedded in
// a line belong to the body.
func closingFence(body string) int {
	offset := 0
	for _, line := range strings.SplitAfter(body, "\n") {
		if strings.TrimSpace(line) == fence {
			return offset
		}
		offset += len(line)
	}
	trimmed := strings.TrimRight(body, " \t\r\n")
	if strings.HasSuffix(trimmed, fence) {
		return len(trimmed) - len(fence)
	}
	return -1
}

// isOpeningFence reports whether the fence at the start of text opens a
// block: it carries a SQL language tag, or a closing fence follows on a later
// line.
func isOpeningFence(text string) bool {
	line, rest, found := strings.Cut(text[len(fence):], "\n")
	tag := strings.ToLower(strings.TrimSpace(line))
	for _, known := range languageTags {
		if tag == known {
			return true
		}
	}
	if strings.ContainsAny(tag, " \t'\"") {
		return false
	}
	return found && closingFence(rest) >= 0
}

var languageTags = []string{"postgresql", "mysql", "sqlite", "duckdb", "sql"}

func trimLanguageTag(text string) string {
	lower := strings.ToLower(text)
	for _, tag := range languageTags {
		if strings.HasPrefix(lower, tag) && (len(text) == len(tag) || text[len(tag)] == ' ') {
			return text[len(tag):]
		}
	}
	return text
}
