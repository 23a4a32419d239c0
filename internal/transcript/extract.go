package transcript

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"condense/internal/services"
)

// Format names a supported transcript input format.
type Format string

const (
	FormatText Format = "text"
	FormatSRT  Format = "srt"
	FormatHTML Format = "html"
)

// DetectFormat picks the format from a file extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt":
		return FormatSRT
	case ".html", ".htm":
		return FormatHTML
	default:
		return FormatText
	}
}

// ExtractFile reads path and returns its transcript text. Subtitle input is
// rendered in the Script form; HTML input becomes its visible text.
func ExtractFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", services.Wrap(services.ErrIO, "extract", "read transcript", fmt.Sprintf("Read %s", path), err)
	}
	if !utf8.Valid(data) {
		return "", services.Wrap(services.ErrData, "extract", "decode transcript", fmt.Sprintf("%s is not valid UTF-8", path), nil)
	}
	var text string
	switch DetectFormat(path) {
	case FormatSRT:
		text, err = ExtractSRT(bytes.NewReader(data))
	case FormatHTML:
		text, err = ExtractHTML(bytes.NewReader(data))
	default:
		text = norm.NFC.String(strings.TrimPrefix(string(data), "\uFEFF"))
	}
	if err != nil {
		return "", services.Wrap(services.ErrData, "extract", "parse transcript", fmt.Sprintf("Parse %s", path), err)
	}
	return text, nil
}
