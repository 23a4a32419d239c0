package transcript_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"condense/internal/services"
	"condense/internal/transcript"
)

const sampleSRT = "\uFEFF1\r\n00:00:01,000 --> 00:00:02,500\r\nHello there.\r\nSecond line\r\n\r\n2\r\n00:01:00,010 --> 01:00:00,000\r\nCafé time\r\n\r\n3\r\n00:02:00,000 --> 00:02:01,000\r\n\r\n"

func TestExtractSRT(t *testing.T) {
	got, err := transcript.ExtractSRT(strings.NewReader(sampleSRT))
	if err != nil {
		t.Fatalf("ExtractSRT returned error: %v", err)
	}
	want := "Script: Hello there. Second line\nStart Time: 1000\nEnd Time: 2500\n\n" +
		"Script: Café time\nStart Time: 60010\nEnd Time: 3600000\n\n"
	if got != want {
		t.Fatalf("unexpected extraction:\n%q\nwant\n%q", got, want)
	}
}

func TestNormalizeScriptForm(t *testing.T) {
	input := "Script: Hello there.\nStart Time: 1000\nEnd Time: 2500\n\nScript: General Kenobi\nStart Time: 3000\nEnd Time: 4000\n\n"
	if got := transcript.Normalize(input); got != "Hello there. General Kenobi" {
		t.Fatalf("unexpected normalization %q", got)
	}
}

func TestNormalizePlainText(t *testing.T) {
	input := "  first line \r\nsecond line\n\n\nthird"
	if got := transcript.Normalize(input); got != "first line second line third" {
		t.Fatalf("unexpected normalization %q", got)
	}
}

func TestSRTThenNormalizeRoundTrip(t *testing.T) {
	extracted, err := transcript.ExtractSRT(strings.NewReader(sampleSRT))
	if err != nil {
		t.Fatal(err)
	}
	if got := transcript.Normalize(extracted); got != "Hello there. Second line Café time" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestExtractHTML(t *testing.T) {
	input := `<html><head><title>Ignored</title><style>p{}</style></head><body>
<h1>Weekly  sync</h1>
<div class="speaker"><b>Ana:</b> Let's   start.</div>
<script>var x = "hidden";</script>
<ul><li>Item one</li><li>Item <em>two</em></li></ul>
<p>Done.<br>Bye</p>
</body></html>`
	got, err := transcript.ExtractHTML(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ExtractHTML returned error: %v", err)
	}
	want := "Weekly sync\nAna: Let's start.\nItem one\nItem two\nDone.\nBye\n"
	if got != want {
		t.Fatalf("unexpected html text:\n%q\nwant\n%q", got, want)
	}
}

func TestExtractFileDispatch(t *testing.T) {
	dir := t.TempDir()
	srt := filepath.Join(dir, "talk.SRT")
	if err := os.WriteFile(srt, []byte(sampleSRT), 0o644); err != nil {
		t.Fatal(err)
	}
	text, err := transcript.ExtractFile(srt)
	if err != nil {
		t.Fatalf("ExtractFile srt: %v", err)
	}
	if !strings.HasPrefix(text, "Script: Hello there.") {
		t.Fatalf("expected srt rendering, got %q", text)
	}

	plain := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(plain, []byte("\uFEFFplain words"), 0o644); err != nil {
		t.Fatal(err)
	}
	text, err = transcript.ExtractFile(plain)
	if err != nil || text != "plain words" {
		t.Fatalf("ExtractFile txt = %q, %v", text, err)
	}
}

func TestExtractFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := transcript.ExtractFile(filepath.Join(dir, "missing.srt")); !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	binary := filepath.Join(dir, "blob.txt")
	if err := os.WriteFile(binary, []byte{0xff, 0xfe, 0x00, 0x41}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := transcript.ExtractFile(binary); !errors.Is(err, services.ErrData) {
		t.Fatalf("expected ErrData, got %v", err)
	}
}

func TestDetectFormat(t *testing.T) {
	cases := map[string]transcript.Format{
		"a.srt":  transcript.FormatSRT,
		"b.HTM":  transcript.FormatHTML,
		"c.html": transcript.FormatHTML,
		"d.txt":  transcript.FormatText,
		"e":      transcript.FormatText,
	}
	for path, want := range cases {
		if got := transcript.DetectFormat(path); got != want {
			t.Fatalf("DetectFormat(%q) = %s, want %s", path, got, want)
		}
	}
}
