package transcode

import (
	"context"
	"errors"
	"os"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/snapwall/snapwall-backend/internal/broadcast"
	"github.com/snapwall/snapwall-backend/pkg/db/models"
	"github.com/snapwall/snapwall-backend/pkg/enums"
	pkgerrors "github.com/snapwall/snapwall-backend/pkg/errors"
	"github.com/snapwall/snapwall-backend/pkg/logger"
	"github.com/snapwall/snapwall-backend/pkg/storage"
)

const renditionContentType = "video/mp4"

// MediaStore is the slice of the media repository the processor drives.
// Finalize and MarkFailed only transition rows still in processing and report whether they did.
type MediaStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.MediaItem, error)
	Finalize(ctx context.Context, id uuid.UUID, storageKey, previewKey string) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
}

// QuotaReleaser returns reserved bytes to an uploader.
type QuotaReleaser interface {
	Release(ctx context.Context, userID uuid.UUID, delta int64) error
}

// ProcessorParams wires a Processor.
type ProcessorParams struct {
	Media       MediaStore
	Store       storage.ObjectStore
	Quota       QuotaReleaser
	Transcoder  Transcoder
	Broadcaster broadcast.Publisher
	Options     Options
	Logger      *logger.Logger
}

// Processor settles one task: transcode, upload, finalize, and compensate on failure.
type Processor struct {
	media       MediaStore
	store       storage.ObjectStore
	quota       QuotaReleaser
	transcoder  Transcoder
	broadcaster broadcast.Publisher
	opts        Options
	logg        *logger.Logger
}

func NewProcessor(params ProcessorParams) (*Processor, error) {
	if params.Media == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media store is required")
	}
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "object store is required")
	}
	if params.Quota == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quota ledger is required")
	}
	if params.Transcoder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transcoder is required")
	}
	if params.Broadcaster == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "broadcaster is required")
	}
	return &Processor{
		media:       params.Media,
		store:       params.Store,
		quota:       params.Quota,
		transcoder:  params.Transcoder,
		broadcaster: params.Broadcaster,
		opts:        params.Options,
		logg:        params.Logger,
	}, nil
}

// Process settles task. Temp files are removed on every path, panics included.
func (p *Processor) Process(ctx context.Context, task Task) (outcome Outcome, err error) {
	if p.logg != nil {
		ctx = p.logg.WithMediaID(p.logg.WithEventID(ctx, task.EventID.String()), task.MediaID.String())
	}
	output := task.renditionPath()
	defer func() {
		if cleanupErr := removeTemp(task.InputPath, output); cleanupErr != nil {
			p.warn(ctx, "transcode.cleanup_failed", cleanupErr)
		}
	}()

	item, err := p.media.FindByID(ctx, task.MediaID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return OutcomeDiscarded, nil
		}
		return OutcomeFailed, err
	}
	switch item.State {
	case enums.MediaStateDeleted:
		return OutcomeDiscarded, p.purge(ctx, task.MediaID, nil)
	case enums.MediaStateProcessing:
	default:
		return OutcomeDiscarded, nil
	}

	p.broadcaster.Publish(ctx, task.EventID.String(), broadcast.EventMediaProcessing, broadcast.NewMediaPayload(*item))

	status, runErr := p.transcoder.Run(ctx, task.InputPath, output, p.opts)
	switch {
	case errors.Is(runErr, context.DeadlineExceeded):
		// A timeout only happens after a successful start.
		return p.fail(ctx, task, item, nil, pkgerrors.Wrap(pkgerrors.CodeTranscodeFailed, runErr, "transcoder timed out").
			WithDetails(map[string]any{"timed_out": true, "stderr": status.Stderr}))
	case runErr != nil:
		return p.fail(ctx, task, item, nil, pkgerrors.Wrap(pkgerrors.CodeTranscodeSpawnFailed, runErr, "transcoder could not run"))
	}
	if !status.Success() {
		return p.fail(ctx, task, item, nil, pkgerrors.New(pkgerrors.CodeTranscodeFailed, "transcoder exited with failure").
			WithDetails(map[string]any{"exit_code": status.Code, "stderr": status.Stderr}))
	}

	originalKey := storage.OriginalKey(task.EventID, task.MediaID, task.OriginalExt)
	previewKey := storage.PreviewKey(task.EventID, task.MediaID, "mp4")
	var written []string

	if err := p.store.Put(ctx, task.InputPath, originalKey, task.ContentType); err != nil {
		return p.fail(ctx, task, item, written, pkgerrors.Wrap(pkgerrors.CodeStorageWriteFailed, err, "store original video"))
	}
	written = append(written, originalKey)
	if err := p.store.Put(ctx, output, previewKey, renditionContentType); err != nil {
		return p.fail(ctx, task, item, written, pkgerrors.Wrap(pkgerrors.CodeStorageWriteFailed, err, "store video rendition"))
	}
	written = append(written, previewKey)

	finalized, err := p.media.Finalize(ctx, task.MediaID, originalKey, previewKey)
	if err != nil {
		return p.fail(ctx, task, item, written, err)
	}
	if !finalized {
		// Tombstoned or failed elsewhere while running; only a tombstone loses its row.
		return OutcomeDiscarded, multierr.Append(p.deleteObjects(ctx, written), p.purgeIfTombstoned(ctx, task.MediaID))
	}

	item.State = enums.MediaStateReady
	item.StorageKey = &originalKey
	item.PreviewKey = &previewKey
	p.broadcaster.Publish(ctx, task.EventID.String(), broadcast.EventMediaProcessed, broadcast.NewMediaPayload(*item))
	if p.logg != nil {
		p.logg.Info(ctx, "transcode.ready")
	}
	return OutcomeReady, nil
}

// fail compensates a task that cannot produce a rendition. Quota is released only by the call that moved the row to failed.
func (p *Processor) fail(ctx context.Context, task Task, item *models.MediaItem, written []string, cause error) (Outcome, error) {
	if p.logg != nil {
		p.logg.Error(ctx, "transcode.failed", cause)
	}
	if err := p.deleteObjects(ctx, written); err != nil {
		p.warn(ctx, "transcode.compensation_delete_failed", err)
	}

	reason := failureReason(cause)
	transitioned, err := p.media.MarkFailed(ctx, task.MediaID, reason)
	if err != nil {
		return OutcomeFailed, multierr.Append(cause, err)
	}
	if !transitioned {
		return OutcomeDiscarded, p.purgeIfTombstoned(ctx, task.MediaID)
	}

	if task.ChargesQuota() {
		if err := p.quota.Release(ctx, task.QuotaUserID, task.SizeBytes); err != nil {
			p.warn(ctx, "transcode.quota_release_failed", err)
		}
	}

	item.State = enums.MediaStateFailed
	item.FailureReason = &reason
	p.broadcaster.Publish(ctx, task.EventID.String(), broadcast.EventMediaFailed, broadcast.NewMediaPayload(*item))
	return OutcomeFailed, cause
}

// purge removes a tombstoned row and whatever this task already wrote for it.
func (p *Processor) purge(ctx context.Context, mediaID uuid.UUID, written []string) error {
	err := p.deleteObjects(ctx, written)
	if delErr := p.media.HardDelete(ctx, mediaID); delErr != nil {
		err = multierr.Append(err, delErr)
	}
	if p.logg != nil {
		p.logg.Info(ctx, "transcode.discarded_tombstone")
	}
	return err
}

func (p *Processor) purgeIfTombstoned(ctx context.Context, mediaID uuid.UUID) error {
	item, err := p.media.FindByID(ctx, mediaID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil
		}
		return err
	}
	if item.State != enums.MediaStateDeleted {
		return nil
	}
	return p.purge(ctx, mediaID, nil)
}

func (p *Processor) deleteObjects(ctx context.Context, keys []string) error {
	var err error
	for _, key := range keys {
		err = multierr.Append(err, p.store.Delete(ctx, key))
	}
	return err
}

func (p *Processor) warn(ctx context.Context, msg string, err error) {
	if p.logg == nil {
		return
	}
	p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), msg)
}

func failureReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return string(pkgerrors.CodeInternal)
}

func removeTemp(paths ...string) error {
	var err error
	for _, path := range paths {
		if path == "" {
			continue
		}
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = multierr.Append(err, rmErr)
		}
	}
	return err
}
