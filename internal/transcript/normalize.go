package transcript

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	scriptPrefix    = "Script: "
	startTimePrefix = "Start Time:"
	endTimePrefix   = "End Time:"
)

// Normalize flattens a timestamped transcript into one line of text.
// Plain transcripts pass through with their lines joined by spaces.
func Normalize(text string) string {
	text = norm.NFC.String(strings.TrimPrefix(text, "\uFEFF"))
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, startTimePrefix) || strings.HasPrefix(line, endTimePrefix) {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, scriptPrefix))
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, " ")
}
