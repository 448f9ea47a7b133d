package storage

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const previewSegment = "previews"

// OriginalKey is the location of the uploaded asset.
func OriginalKey(eventID, mediaID uuid.UUID, ext string) string {
	return fmt.Sprintf("events/%s/%s.%s", eventID, mediaID, cleanExt(ext))
}

// PreviewKey is the location of the resized image or transcoded rendition.
func PreviewKey(eventID, mediaID uuid.UUID, ext string) string {
	return fmt.Sprintf("events/%s/%s/%s.%s", eventID, previewSegment, mediaID, cleanExt(ext))
}

// EventPrefix scopes every object that belongs to an event.
func EventPrefix(eventID uuid.UUID) string {
	return fmt.Sprintf("events/%s/", eventID)
}

func cleanExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	var b strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "bin"
	}
	return b.String()
}
