package storage

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestKeysAreNamespacedByEventAndMedia(t *testing.T) {
	eventID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	mediaID := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	if got := OriginalKey(eventID, mediaID, ".JPG"); got != "events/11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222.jpg" {
		t.Fatalf("unexpected original key %s", got)
	}
	if got := PreviewKey(eventID, mediaID, "mp4"); got != "events/11111111-1111-1111-1111-111111111111/previews/22222222-2222-2222-2222-222222222222.mp4" {
		t.Fatalf("unexpected preview key %s", got)
	}
	if !strings.HasPrefix(PreviewKey(eventID, mediaID, "jpg"), EventPrefix(eventID)) {
		t.Fatal("preview key must live under the event prefix")
	}
}

func TestCleanExt(t *testing.T) {
	cases := map[string]string{
		"":          "bin",
		".mov":      "mov",
		"../../etc": "etc",
		" WebM ":    "webm",
	}
	for in, want := range cases {
		if got := cleanExt(in); got != want {
			t.Fatalf("cleanExt(%q) = %q, want %q", in, got, want)
		}
	}
}
