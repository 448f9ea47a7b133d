package enums

import (
	"fmt"
	"strings"
)

// MediaKind separates stills from clips. Only clips are transcoded.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

func (k MediaKind) String() string { return string(k) }

func (k MediaKind) IsValid() bool {
	return k == MediaKindImage || k == MediaKindVideo
}

// NeedsTranscode reports whether uploads of this kind go through the transcode queue.
func (k MediaKind) NeedsTranscode() bool {
	return k == MediaKindVideo
}

// ParseMediaKind is case-insensitive and accepts "photo" for images.
func ParseMediaKind(value string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "image", "photo":
		return MediaKindImage, nil
	case "video":
		return MediaKindVideo, nil
	}
	return "", fmt.Errorf("invalid media kind %q", value)
}
