package transcript

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var cueTimeRegex = regexp.MustCompile(`(\d{2,}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2,}):(\d{2}):(\d{2})[,.](\d{3})`)

// Cue is one subtitle entry.
type Cue struct {
	Text    string
	StartMS int64
	EndMS   int64
}

// ParseSRT reads SubRip cues. Index lines and blank lines are skipped; text
// lines of a cue are joined with spaces.
func ParseSRT(r io.Reader) ([]Cue, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		cues    []Cue
		current Cue
		text    []string
		seen    bool
	)
	flush := func() {
		if len(text) > 0 {
			current.Text = strings.Join(text, " ")
			cues = append(cues, current)
		}
		text = text[:0]
	}

	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\uFEFF")
			first = false
		}
		if match := cueTimeRegex.FindStringSubmatch(line); match != nil {
			flush()
			current = Cue{StartMS: cueMillis(match[1:5]), EndMS: cueMillis(match[5:9])}
			seen = true
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isDigits(trimmed) || !seen {
			continue
		}
		text = append(text, norm.NFC.String(trimmed))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	flush()
	return cues, nil
}

// ExtractSRT renders SubRip input in the timestamped Script form.
func ExtractSRT(r io.Reader) (string, error) {
	cues, err := ParseSRT(r)
	if err != nil {
		return "", err
	}
	var builder strings.Builder
	for _, cue := range cues {
		fmt.Fprintf(&builder, "%s%s\n%s %d\n%s %d\n\n", scriptPrefix, cue.Text, startTimePrefix, cue.StartMS, endTimePrefix, cue.EndMS)
	}
	return builder.String(), nil
}

func cueMillis(parts []string) int64 {
	hours, _ := strconv.ParseInt(parts[0], 10, 64)
	minutes, _ := strconv.ParseInt(parts[1], 10, 64)
	seconds, _ := strconv.ParseInt(parts[2], 10, 64)
	millis, _ := strconv.ParseInt(parts[3], 10, 64)
	return ((hours*60+minutes)*60+seconds)*1000 + millis
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return value != ""
}
