package broadcast

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/snapwall/snapwall-backend/pkg/db/models"
	"github.com/snapwall/snapwall-backend/pkg/enums"
)

func TestNewMediaPayloadPublic(t *testing.T) {
	preview := "events/e/previews/m.jpg"
	item := models.MediaItem{
		ID:         uuid.New(),
		EventID:    uuid.New(),
		Kind:       enums.MediaKindImage,
		State:      enums.MediaStateReady,
		Privacy:    enums.MediaPrivacyPublic,
		UploaderID: "guest_1",
		Caption:    "cake",
		PreviewKey: &preview,
		UploadedAt: time.Now(),
	}

	payload := NewMediaPayload(item)
	assert.Equal(t, item.ID.String(), payload.MediaID)
	assert.Equal(t, preview, payload.PreviewKey)
	assert.Equal(t, "cake", payload.Caption)
	assert.NotNil(t, payload.UploadedAt)
}

func TestNewMediaPayloadRedactsPrivate(t *testing.T) {
	preview := "events/e/previews/m.jpg"
	item := models.MediaItem{
		ID:         uuid.New(),
		EventID:    uuid.New(),
		State:      enums.MediaStateReady,
		Privacy:    enums.MediaPrivacyPrivate,
		UploaderID: "user",
		Caption:    "secret",
		PreviewKey: &preview,
	}

	payload := NewMediaPayload(item)
	assert.Equal(t, item.ID.String(), payload.MediaID)
	assert.Empty(t, payload.Caption)
	assert.Empty(t, payload.PreviewKey)
	assert.Empty(t, payload.UploaderID)
}
