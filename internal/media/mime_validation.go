package media

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/snapwall/snapwall-backend/pkg/enums"
)

// sniffLimit is how much of the payload is buffered for detection.
const sniffLimit = 3072

type acceptedFormat struct {
	mime string
	ext  string
	kind enums.MediaKind
}

// acceptedFormats is the upload allow-list. Detection is by content, never by the client's
// declared type or file name.
var acceptedFormats = []acceptedFormat{
	{mime: "image/jpeg", ext: "jpg", kind: enums.MediaKindImage},
	{mime: "image/png", ext: "png", kind: enums.MediaKindImage},
	{mime: "image/gif", ext: "gif", kind: enums.MediaKindImage},
	{mime: "image/webp", ext: "webp", kind: enums.MediaKindImage},
	{mime: "video/mp4", ext: "mp4", kind: enums.MediaKindVideo},
	{mime: "video/quicktime", ext: "mov", kind: enums.MediaKindVideo},
	{mime: "video/webm", ext: "webm", kind: enums.MediaKindVideo},
	{mime: "video/x-matroska", ext: "mkv", kind: enums.MediaKindVideo},
}

var kindLabels = map[enums.MediaKind]string{
	enums.MediaKindImage: "images",
	enums.MediaKindVideo: "videos",
}

func lookupFormat(mimeType string) (acceptedFormat, bool) {
	for _, f := range acceptedFormats {
		if f.mime == mimeType {
			return f, true
		}
	}
	return acceptedFormat{}, false
}

// sniffContent detects the payload type from its leading bytes and returns a reader that replays them.
func sniffContent(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLimit)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, fmt.Errorf("read upload header: %w", err)
	}
	head = head[:n]
	return normalizeMime(mimetype.Detect(head).String()), io.MultiReader(bytes.NewReader(head), r), nil
}

func normalizeMime(value string) string {
	base, _, _ := strings.Cut(value, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

func kindForMime(mimeType string) (enums.MediaKind, bool) {
	f, ok := lookupFormat(mimeType)
	return f.kind, ok
}

func isAllowedMime(kind enums.MediaKind, mimeType string) bool {
	f, ok := lookupFormat(mimeType)
	return ok && f.kind == kind
}

func extensionForMime(mimeType string) string {
	if f, ok := lookupFormat(mimeType); ok {
		return f.ext
	}
	return "bin"
}

// allowedMimeDescription renders e.g. "JPG, PNG, GIF or WEBP images" for error messages.
func allowedMimeDescription(kind enums.MediaKind) string {
	var names []string
	for _, f := range acceptedFormats {
		if f.kind == kind {
			names = append(names, strings.ToUpper(f.ext))
		}
	}
	label, ok := kindLabels[kind]
	if !ok || len(names) == 0 {
		return "images or videos"
	}
	if len(names) == 1 {
		return names[0] + " " + label
	}
	return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1] + " " + label
}
