package media

import (
	"fmt"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// PreviewOptions bound the generated JPEG preview.
type PreviewOptions struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

func (o PreviewOptions) normalized() PreviewOptions {
	if o.MaxWidth <= 0 {
		o.MaxWidth = 1920
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = 1080
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = 80
	}
	return o
}

// renderPreview decodes src, fits it inside the configured box without upscaling and writes a JPEG to dst.
func renderPreview(src, dst string, opts PreviewOptions) error {
	opts = opts.normalized()
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() > opts.MaxWidth || bounds.Dy() > opts.MaxHeight {
		img = imaging.Fit(img, opts.MaxWidth, opts.MaxHeight, imaging.Lanczos)
	}
	if err := imaging.Save(img, dst, imaging.JPEGQuality(opts.Quality)); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}
