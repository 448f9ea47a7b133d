package enums

import (
	"fmt"
	"strings"
)

// MediaPrivacy controls who may see an item in the event gallery.
type MediaPrivacy string

const (
	MediaPrivacyPublic  MediaPrivacy = "public"
	MediaPrivacyPrivate MediaPrivacy = "private"
)

var validMediaPrivacies = []MediaPrivacy{
	MediaPrivacyPublic,
	MediaPrivacyPrivate,
}

func (m MediaPrivacy) String() string {
	return string(m)
}

func (m MediaPrivacy) IsValid() bool {
	for _, candidate := range validMediaPrivacies {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMediaPrivacy converts raw input into a MediaPrivacy. Empty input means public.
func ParseMediaPrivacy(value string) (MediaPrivacy, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return MediaPrivacyPublic, nil
	}
	for _, candidate := range validMediaPrivacies {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media privacy %q", value)
}
