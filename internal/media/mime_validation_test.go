package media

import (
	"bytes"
	"io"
	"testing"

	"github.com/snapwall/snapwall-backend/pkg/enums"
)

func TestSniffContentReplaysHeader(t *testing.T) {
	data := pngBytes(t, 4, 4)

	mime, body, err := sniffContent(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("sniff: %v", err)
	}
	if mime != "image/png" {
		t.Fatalf("expected image/png, got %s", mime)
	}
	replayed, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read replay: %v", err)
	}
	if !bytes.Equal(replayed, data) {
		t.Fatalf("replayed body differs from input")
	}
}

func TestSniffContentDetectsVideo(t *testing.T) {
	mime, _, err := sniffContent(bytes.NewReader(mp4Bytes()))
	if err != nil {
		t.Fatalf("sniff: %v", err)
	}
	kind, ok := kindForMime(mime)
	if !ok || kind != enums.MediaKindVideo {
		t.Fatalf("expected video kind for %s", mime)
	}
}

func TestMimeRules(t *testing.T) {
	if !isAllowedMime(enums.MediaKindImage, "image/webp") {
		t.Fatal("webp images should be accepted")
	}
	if isAllowedMime(enums.MediaKindImage, "video/mp4") {
		t.Fatal("videos are not images")
	}
	if _, ok := kindForMime("application/pdf"); ok {
		t.Fatal("pdf should not map to a media kind")
	}
	if got := extensionForMime("video/quicktime"); got != "mov" {
		t.Fatalf("expected mov, got %s", got)
	}
	if got := normalizeMime(" Image/JPEG; charset=binary "); got != "image/jpeg" {
		t.Fatalf("unexpected normalization %q", got)
	}
	if got := allowedMimeDescription(enums.MediaKindVideo); got == "" {
		t.Fatal("expected a description for videos")
	}
}

func TestAllowedMimeDescription(t *testing.T) {
	if got := allowedMimeDescription(enums.MediaKindImage); got != "JPG, PNG, GIF or WEBP images" {
		t.Fatalf("unexpected image description %q", got)
	}
	if got := allowedMimeDescription(enums.MediaKind("audio")); got != "images or videos" {
		t.Fatalf("unexpected fallback %q", got)
	}
}

func TestSniffContentRejectsUnknownPayload(t *testing.T) {
	mime, _, err := sniffContent(bytes.NewReader([]byte("%PDF-1.7\n")))
	if err != nil {
		t.Fatalf("sniff: %v", err)
	}
	if _, ok := kindForMime(mime); ok {
		t.Fatalf("%s should not be accepted", mime)
	}
	if got := extensionForMime(mime); got != "bin" {
		t.Fatalf("expected bin extension, got %s", got)
	}
}
