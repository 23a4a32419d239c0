package textutil

import (
	"strings"
	"testing"
)

func TestSanitizeToken(t *testing.T) {
	cases := map[string]string{
		"Team Sync.srt":          "team_sync_srt",
		"Team Meeting":           "team_meeting",
		"   ":                    "unknown",
		"__--":                   "unknown",
		"Ep-01":                  "ep-01",
		"Café  Notes":            "cafe_notes",
		"Résumé (final) v2":      "resume_final_v2",
		"会议":                     "unknown",
		"_leading and trailing_": "leading_and_trailing",
	}
	for input, want := range cases {
		if got := SanitizeToken(input); got != want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSanitizeTokenCapsLength(t *testing.T) {
	got := SanitizeToken(strings.Repeat("a", 200))
	if len(got) != MaxTokenLength {
		t.Fatalf("len = %d, want %d", len(got), MaxTokenLength)
	}
}
