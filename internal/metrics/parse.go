package metrics

import (
	"net/url"
	"strconv"
	"strings"
)

// ParseValues parses a newline-separated value blob as submitted by the
// phone automation. Each non-empty line becomes one atom: a float64 when it
// parses as a number, otherwise the trimmed string. Percent-encoding is
// decoded (shortcut apps double-encode free-text fields) and all
// line-ending variants are normalized first.
func ParseValues(raw string) []any {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		// Stray % signs are data, not an error.
		decoded = raw
	}
	decoded = strings.ReplaceAll(decoded, "\r\n", "\n")
	decoded = strings.ReplaceAll(decoded, "\r", "\n")

	var values []any
	for _, line := range strings.Split(decoded, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if f, err := strconv.ParseFloat(line, 64); err == nil {
			values = append(values, f)
		} else {
			values = append(values, line)
		}
	}
	return values
}
