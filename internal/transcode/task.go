package transcode

import (
	"time"

	"github.com/google/uuid"
)

// Task is one accepted video upload waiting for a rendition. The task owns InputPath.
type Task struct {
	MediaID     uuid.UUID
	EventID     uuid.UUID
	UploaderID  string
	QuotaUserID uuid.UUID
	SizeBytes   int64
	InputPath   string
	OriginalExt string
	ContentType string
	SubmittedAt time.Time
}

// ChargesQuota reports whether settling the task may need to release reserved bytes.
func (t Task) ChargesQuota() bool {
	return t.QuotaUserID != uuid.Nil && t.SizeBytes > 0
}

func (t Task) renditionPath() string {
	return t.InputPath + ".rendition.mp4"
}

// Outcome is how a task settled.
type Outcome string

const (
	OutcomeReady     Outcome = "ready"
	OutcomeFailed    Outcome = "failed"
	OutcomeDiscarded Outcome = "discarded"
)
