package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func TestRenderPreviewFitsWithoutUpscaling(t *testing.T) {
	dir := t.TempDir()
	large := filepath.Join(dir, "large.png")
	small := filepath.Join(dir, "small.png")
	if err := os.WriteFile(large, pngBytes(t, 400, 200), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(small, pngBytes(t, 40, 20), 0o600); err != nil {
		t.Fatal(err)
	}

	opts := PreviewOptions{MaxWidth: 100, MaxHeight: 100, Quality: 70}

	out := filepath.Join(dir, "large.jpg")
	if err := renderPreview(large, out, opts); err != nil {
		t.Fatalf("render large: %v", err)
	}
	img, err := imaging.Open(out)
	if err != nil {
		t.Fatalf("open preview: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Fatalf("expected 100x50, got %dx%d", b.Dx(), b.Dy())
	}

	out = filepath.Join(dir, "small.jpg")
	if err := renderPreview(small, out, opts); err != nil {
		t.Fatalf("render small: %v", err)
	}
	img, err = imaging.Open(out)
	if err != nil {
		t.Fatalf("open preview: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 20 {
		t.Fatalf("expected original size 40x20, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestRenderPreviewRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(src, []byte("not an image"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := renderPreview(src, filepath.Join(dir, "bad.jpg"), PreviewOptions{}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestPreviewOptionsDefaults(t *testing.T) {
	got := PreviewOptions{Quality: 150}.normalized()
	if got.MaxWidth != 1920 || got.MaxHeight != 1080 || got.Quality != 80 {
		t.Fatalf("unexpected defaults %+v", got)
	}
}
