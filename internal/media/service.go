package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/snapwall/snapwall-backend/internal/access"
	"github.com/snapwall/snapwall-backend/internal/broadcast"
	"github.com/snapwall/snapwall-backend/internal/ratelimit"
	"github.com/snapwall/snapwall-backend/internal/transcode"
	"github.com/snapwall/snapwall-backend/pkg/auth"
	"github.com/snapwall/snapwall-backend/pkg/config"
	"github.com/snapwall/snapwall-backend/pkg/db/models"
	"github.com/snapwall/snapwall-backend/pkg/enums"
	pkgerrors "github.com/snapwall/snapwall-backend/pkg/errors"
	"github.com/snapwall/snapwall-backend/pkg/logger"
	"github.com/snapwall/snapwall-backend/pkg/metrics"
	"github.com/snapwall/snapwall-backend/pkg/storage"
)

const maxCaptionRunes = 500

type mediaRepository interface {
	Create(ctx context.Context, item *models.MediaItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.MediaItem, error)
	Finalize(ctx context.Context, id uuid.UUID, storageKey, previewKey string) (bool, error)
	Tombstone(ctx context.Context, id uuid.UUID, from enums.MediaState) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
	DeleteInState(ctx context.Context, id uuid.UUID, state enums.MediaState) (bool, error)
	IncrementLike(ctx context.Context, id uuid.UUID) (int64, error)
	List(ctx context.Context, q listQuery) ([]models.MediaItem, error)
}

type eventRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	IncrementDownloads(ctx context.Context, id uuid.UUID) error
}

type quotaLedger interface {
	Reserve(ctx context.Context, userID uuid.UUID, delta int64) (bool, error)
	Release(ctx context.Context, userID uuid.UUID, delta int64) error
}

type taskQueue interface {
	Submit(task transcode.Task) error
}

// Service exposes ingestion, gallery reads and media lifecycle operations.
type Service interface {
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
	Get(ctx context.Context, input AccessInput) (*MediaDTO, error)
	OpenAsset(ctx context.Context, input AssetInput) (*Asset, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Like(ctx context.Context, input LikeInput) (*LikeResult, error)
	Delete(ctx context.Context, input DeleteInput) error
	BulkDelete(ctx context.Context, input BulkDeleteInput) (*BulkDeleteResult, error)
	// Purge removes a failed or tombstoned item's objects and row.
	Purge(ctx context.Context, item models.MediaItem) error
	// FailAbandoned fails a processing item whose transcode task was lost.
	FailAbandoned(ctx context.Context, item models.MediaItem) (bool, error)
}

// ReasonAbandoned marks items whose task vanished with its process.
const ReasonAbandoned = "TRANSCODE_ABANDONED"

// ServiceParams groups dependencies for the media service.
type ServiceParams struct {
	Repo        mediaRepository
	Events      eventRepository
	Store       storage.ObjectStore
	Quota       quotaLedger
	Queue       taskQueue
	Broadcaster broadcast.Publisher
	Limiter     ratelimit.Limiter
	Policies    ratelimit.Policies
	JWT         config.JWTConfig
	Media       config.MediaConfig
	Metrics     *metrics.PipelineMetrics
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	repo        mediaRepository
	events      eventRepository
	store       storage.ObjectStore
	quota       quotaLedger
	queue       taskQueue
	broadcaster broadcast.Publisher
	limiter     ratelimit.Limiter
	policies    ratelimit.Policies
	access      access.Checker
	jwt         config.JWTConfig
	maxBytes    int64
	tempDir     string
	preview     PreviewOptions
	metrics     *metrics.PipelineMetrics
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds a media service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media repo is required")
	case params.Events == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event repo is required")
	case params.Store == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "object store is required")
	case params.Quota == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quota ledger is required")
	case params.Queue == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transcode queue is required")
	case params.Broadcaster == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "broadcaster is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        params.Repo,
		events:      params.Events,
		store:       params.Store,
		quota:       params.Quota,
		queue:       params.Queue,
		broadcaster: params.Broadcaster,
		limiter:     params.Limiter,
		policies:    params.Policies,
		access:      access.NewChecker(params.JWT),
		jwt:         params.JWT,
		maxBytes:    params.Media.MaxUploadBytes(),
		tempDir:     params.Media.TempDir,
		preview: PreviewOptions{
			MaxWidth:  params.Media.ImageMaxWidth,
			MaxHeight: params.Media.ImageMaxHeight,
			Quality:   params.Media.ImageQuality,
		},
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}, nil
}

type uploader struct {
	id         string
	guest      bool
	quotaUser  uuid.UUID
	guestToken string
}

// Upload validates, accounts and stores one submission. Images are ready on return; videos are queued.
func (s *service) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	result, kind, err := s.upload(ctx, input)
	outcome := "accepted"
	if err != nil {
		outcome = string(pkgerrors.CodeInternal)
		if typed := pkgerrors.As(err); typed != nil {
			outcome = string(typed.Code())
		}
	}
	if kind == "" {
		kind = "unknown"
	}
	s.metrics.IncUpload(kind, outcome)
	return result, err
}

func (s *service) upload(ctx context.Context, input UploadInput) (*UploadResult, string, error) {
	who, err := s.resolveUploader(input)
	if err != nil {
		return nil, "", err
	}

	privacy := enums.MediaPrivacyPublic
	if !who.guest {
		privacy, err = enums.ParseMediaPrivacy(input.Privacy)
		if err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid privacy")
		}
	}

	caption := strings.TrimSpace(input.Caption)
	if utf8.RuneCountInString(caption) > maxCaptionRunes {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("caption must be at most %d characters", maxCaptionRunes))
	}
	if input.File == nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	if input.Size <= 0 {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if s.maxBytes > 0 && input.Size > s.maxBytes {
		return nil, "", pkgerrors.New(pkgerrors.CodePayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}

	mimeType, body, err := sniffContent(input.File)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable upload")
	}
	kind, err := s.resolveKind(input.Kind, mimeType)
	if err != nil {
		return nil, string(kind), err
	}

	ctx = s.withLogFields(ctx, input.EventID.String(), who.id)
	event, err := s.events.FindByID(ctx, input.EventID)
	if err != nil {
		return nil, string(kind), err
	}
	if event.IsExpired(s.now()) {
		return nil, string(kind), pkgerrors.New(pkgerrors.CodeStateConflict, "event is no longer accepting uploads")
	}

	if err := s.policies.Upload.Check(ctx, s.limiter, input.ClientIP); err != nil {
		return nil, string(kind), err
	}

	item := &models.MediaItem{
		ID:              uuid.New(),
		EventID:         event.ID,
		Kind:            kind,
		State:           enums.MediaStateProcessing,
		Privacy:         privacy,
		UploaderID:      who.id,
		UploaderIsGuest: who.guest,
		Caption:         caption,
		MimeType:        mimeType,
		SizeBytes:       input.Size,
	}

	if item.ChargesQuota() {
		allowed, err := s.quota.Reserve(ctx, who.quotaUser, item.SizeBytes)
		if err != nil {
			return nil, string(kind), err
		}
		if !allowed {
			return nil, string(kind), pkgerrors.New(pkgerrors.CodeQuotaExceeded, "storage limit exceeded")
		}
	}

	ext := extensionForMime(mimeType)
	spoolPath, err := s.spool(body, ext)
	if err != nil {
		s.releaseQuota(ctx, item)
		return nil, string(kind), err
	}

	if err := s.repo.Create(ctx, item); err != nil {
		removeQuietly(spoolPath)
		s.releaseQuota(ctx, item)
		return nil, string(kind), err
	}
	ctx = s.withMediaField(ctx, item.ID.String())

	if kind.NeedsTranscode() {
		err = s.enqueueVideo(ctx, item, who, spoolPath, ext)
	} else {
		err = s.storeImage(ctx, item, spoolPath, ext)
	}
	if err != nil {
		return nil, string(kind), err
	}

	return &UploadResult{
		Media:      toDTO(*item),
		GuestID:    guestIDFor(who),
		GuestToken: who.guestToken,
	}, string(kind), nil
}

func guestIDFor(who uploader) string {
	if who.guest {
		return who.id
	}
	return ""
}

// resolveUploader binds the request to an uploader id. Fresh guest ids come with a session token.
func (s *service) resolveUploader(input UploadInput) (uploader, error) {
	claimed := strings.TrimSpace(input.ClaimedUploaderID)
	if ident := input.Identity; ident != nil && ident.ID != "" {
		if claimed != "" && claimed != ident.ID {
			return uploader{}, pkgerrors.New(pkgerrors.CodeIdentityMismatch, "uploader id does not match the authenticated identity")
		}
		if ident.IsGuest() {
			return uploader{id: ident.ID, guest: true}, nil
		}
		userID, ok := ident.UserUUID()
		if !ok {
			return uploader{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity cannot upload")
		}
		return uploader{id: ident.ID, quotaUser: userID}, nil
	}

	if auth.IsGuestID(claimed) {
		return uploader{id: claimed, guest: true}, nil
	}
	guestID := auth.NewGuestID()
	token, err := auth.MintGuestToken(s.jwt, s.now(), guestID)
	if err != nil {
		return uploader{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint guest session")
	}
	return uploader{id: guestID, guest: true, guestToken: token}, nil
}

func (s *service) resolveKind(raw, mimeType string) (enums.MediaKind, error) {
	if strings.TrimSpace(raw) == "" {
		kind, ok := kindForMime(mimeType)
		if !ok {
			return "", pkgerrors.New(pkgerrors.CodeUnsupportedMedia, fmt.Sprintf("%s is not an accepted format", mimeType)).
				WithDetails(map[string]any{"detected_mime": mimeType})
		}
		return kind, nil
	}
	kind, err := enums.ParseMediaKind(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid media kind")
	}
	if !isAllowedMime(kind, mimeType) {
		return kind, pkgerrors.New(pkgerrors.CodeUnsupportedMedia, fmt.Sprintf("%s uploads accept %s", kind, allowedMimeDescription(kind))).
			WithDetails(map[string]any{"detected_mime": mimeType})
	}
	return kind, nil
}

func (s *service) spool(body io.Reader, ext string) (string, error) {
	file, err := os.CreateTemp(s.tempDir, "upload-*."+ext)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create spool file")
	}
	reader := body
	if s.maxBytes > 0 {
		reader = io.LimitReader(body, s.maxBytes+1)
	}
	written, copyErr := io.Copy(file, reader)
	closeErr := file.Close()
	if err := multierr.Combine(copyErr, closeErr); err != nil {
		removeQuietly(file.Name())
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "spool upload")
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		removeQuietly(file.Name())
		return "", pkgerrors.New(pkgerrors.CodePayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}
	return file.Name(), nil
}

func (s *service) storeImage(ctx context.Context, item *models.MediaItem, spoolPath, ext string) error {
	previewPath := spoolPath + ".preview.jpg"
	defer removeQuietly(spoolPath, previewPath)

	if err := renderPreview(spoolPath, previewPath, s.preview); err != nil {
		return s.compensate(ctx, item, nil, err)
	}

	originalKey := storage.OriginalKey(item.EventID, item.ID, ext)
	previewKey := storage.PreviewKey(item.EventID, item.ID, "jpg")
	var written []string

	if err := s.store.Put(ctx, spoolPath, originalKey, item.MimeType); err != nil {
		return s.compensate(ctx, item, written, err)
	}
	written = append(written, originalKey)
	if err := s.store.Put(ctx, previewPath, previewKey, "image/jpeg"); err != nil {
		return s.compensate(ctx, item, written, err)
	}
	written = append(written, previewKey)

	finalized, err := s.repo.Finalize(ctx, item.ID, originalKey, previewKey)
	if err != nil {
		return s.compensate(ctx, item, written, err)
	}
	if !finalized {
		// Deleted mid-upload: the delete already released quota.
		if purgeErr := s.purgeKeys(ctx, item.ID, written); purgeErr != nil {
			s.logWarn(ctx, "media.upload_purge_failed", purgeErr)
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "media was deleted during upload")
	}

	item.State = enums.MediaStateReady
	item.StorageKey = &originalKey
	item.PreviewKey = &previewKey
	s.broadcaster.Publish(ctx, item.EventID.String(), broadcast.EventMediaReady, broadcast.NewMediaPayload(*item))
	return nil
}

// enqueueVideo announces the item before submitting so media_created precedes any task message.
func (s *service) enqueueVideo(ctx context.Context, item *models.MediaItem, who uploader, spoolPath, ext string) error {
	s.broadcaster.Publish(ctx, item.EventID.String(), broadcast.EventMediaCreated, broadcast.NewMediaPayload(*item))

	err := s.queue.Submit(transcode.Task{
		MediaID:     item.ID,
		EventID:     item.EventID,
		UploaderID:  item.UploaderID,
		QuotaUserID: who.quotaUser,
		SizeBytes:   item.SizeBytes,
		InputPath:   spoolPath,
		OriginalExt: ext,
		ContentType: item.MimeType,
		SubmittedAt: s.now(),
	})
	if err == nil {
		return nil
	}

	removeQuietly(spoolPath)
	removed, rollbackErr := s.rollback(ctx, item)
	if rollbackErr != nil {
		s.logWarn(ctx, "media.enqueue_rollback_failed", rollbackErr)
	}
	if removed {
		item.State = enums.MediaStateDeleted
		s.broadcaster.Publish(ctx, item.EventID.String(), broadcast.EventMediaDeleted, broadcast.NewMediaPayload(*item))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transcode queue unavailable")
}

// compensate undoes an accepted upload whose assets could not be stored.
func (s *service) compensate(ctx context.Context, item *models.MediaItem, written []string, cause error) error {
	if s.logg != nil {
		s.logg.Error(ctx, "media.upload_store_failed", cause)
	}
	var err error
	for _, key := range written {
		err = multierr.Append(err, s.store.Delete(ctx, key))
	}
	_, rollbackErr := s.rollback(ctx, item)
	if err = multierr.Append(err, rollbackErr); err != nil {
		s.logWarn(ctx, "media.compensation_failed", err)
	}

	if errors.Is(cause, storage.ErrUnavailable) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "object store unavailable")
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorageWriteFailed, cause, "store upload")
}

// rollback removes a still-processing row and releases its quota. A concurrent delete that
// tombstoned the row first has already released quota, so only the tombstone is dropped.
func (s *service) rollback(ctx context.Context, item *models.MediaItem) (bool, error) {
	removed, err := s.repo.DeleteInState(ctx, item.ID, enums.MediaStateProcessing)
	if err != nil {
		return false, err
	}
	if removed {
		s.releaseQuota(ctx, item)
		return true, nil
	}
	return false, s.repo.HardDelete(ctx, item.ID)
}

func (s *service) purgeKeys(ctx context.Context, mediaID uuid.UUID, keys []string) error {
	var err error
	for _, key := range keys {
		err = multierr.Append(err, s.store.Delete(ctx, key))
	}
	return multierr.Append(err, s.repo.HardDelete(ctx, mediaID))
}

func (s *service) releaseQuota(ctx context.Context, item *models.MediaItem) {
	if !item.ChargesQuota() {
		return
	}
	userID, err := uuid.Parse(item.UploaderID)
	if err != nil {
		return
	}
	if err := s.quota.Release(ctx, userID, item.SizeBytes); err != nil {
		s.logWarn(ctx, "media.quota_release_failed", err)
	}
}

// Get returns one visible item.
func (s *service) Get(ctx context.Context, input AccessInput) (*MediaDTO, error) {
	item, _, err := s.loadVisible(ctx, input)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*item)
	return &dto, nil
}

// OpenAsset streams a stored variant. Original downloads are counted on the event.
func (s *service) OpenAsset(ctx context.Context, input AssetInput) (*Asset, error) {
	variant := strings.ToLower(strings.TrimSpace(input.Variant))
	if variant == "" {
		variant = VariantPreview
	}
	if variant != VariantOriginal && variant != VariantPreview {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant must be original or preview")
	}

	item, event, err := s.loadVisible(ctx, input.AccessInput)
	if err != nil {
		return nil, err
	}
	key := item.PreviewKey
	if variant == VariantOriginal {
		key = item.StorageKey
	}
	if item.State != enums.MediaStateReady || key == nil || *key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not available")
	}

	obj, err := s.store.Get(ctx, *key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read asset")
	}
	if variant == VariantOriginal {
		if err := s.events.IncrementDownloads(ctx, event.ID); err != nil {
			s.logWarn(ctx, "media.download_count_failed", err)
		}
	}
	return &Asset{Object: obj, Variant: variant, FileName: path.Base(*key)}, nil
}

// Like increments the counter of a ready item and notifies the event channel.
func (s *service) Like(ctx context.Context, input LikeInput) (*LikeResult, error) {
	if err := s.policies.Like.Check(ctx, s.limiter, input.ClientIP); err != nil {
		return nil, err
	}
	item, _, err := s.loadVisible(ctx, input.AccessInput)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.IncrementLike(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	s.broadcaster.Publish(ctx, item.EventID.String(), broadcast.EventNewLike, broadcast.LikePayload{
		MediaID:   item.ID.String(),
		LikeCount: count,
	})
	return &LikeResult{MediaID: item.ID, LikeCount: count}, nil
}

// Delete tombstones an item on behalf of its uploader or the event host.
func (s *service) Delete(ctx context.Context, input DeleteInput) error {
	item, err := s.repo.FindByID(ctx, input.MediaID)
	if err != nil {
		return err
	}
	if item.State == enums.MediaStateDeleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
	}
	event, err := s.events.FindByID(ctx, item.EventID)
	if err != nil {
		return err
	}
	if err := access.CanManageMedia(event, item, input.Identity); err != nil {
		return err
	}
	return s.deleteItem(ctx, item)
}

// BulkDelete applies Delete to each id of one event and reports per-item failures.
func (s *service) BulkDelete(ctx context.Context, input BulkDeleteInput) (*BulkDeleteResult, error) {
	if len(input.MediaIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media_ids is required")
	}
	if input.Identity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	event, err := s.events.FindByID(ctx, input.EventID)
	if err != nil {
		return nil, err
	}

	result := &BulkDeleteResult{Deleted: []uuid.UUID{}, Failed: map[string]string{}}
	seen := make(map[uuid.UUID]struct{}, len(input.MediaIDs))
	for _, id := range input.MediaIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		err := s.bulkDeleteOne(ctx, event, id, input.Identity)
		if err != nil {
			code := pkgerrors.CodeInternal
			if typed := pkgerrors.As(err); typed != nil {
				code = typed.Code()
			}
			result.Failed[id.String()] = string(code)
			continue
		}
		result.Deleted = append(result.Deleted, id)
	}
	return result, nil
}

func (s *service) bulkDeleteOne(ctx context.Context, event *models.Event, id uuid.UUID, ident *auth.Identity) error {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if item.EventID != event.ID || item.State == enums.MediaStateDeleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
	}
	if err := access.CanManageMedia(event, item, ident); err != nil {
		return err
	}
	return s.deleteItem(ctx, item)
}

// deleteItem tombstones first so an in-flight transcode sees it, releases quota once,
// then removes assets now unless a task still owns the item.
func (s *service) deleteItem(ctx context.Context, item *models.MediaItem) error {
	ctx = s.withMediaField(s.withLogFields(ctx, item.EventID.String(), ""), item.ID.String())
	prior := item.State
	ok, err := s.repo.Tombstone(ctx, item.ID, prior)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "media changed concurrently; retry")
	}

	// Failed items already gave their bytes back.
	if prior != enums.MediaStateFailed {
		s.releaseQuota(ctx, item)
	}

	if prior != enums.MediaStateProcessing {
		if err := s.Purge(ctx, *item); err != nil {
			// The tombstone stays for the cleanup job.
			s.logWarn(ctx, "media.delete_purge_failed", err)
		}
	}

	item.State = enums.MediaStateDeleted
	s.broadcaster.Publish(ctx, item.EventID.String(), broadcast.EventMediaDeleted, broadcast.NewMediaPayload(*item))
	return nil
}

// FailAbandoned moves a processing item to failed, releases its quota and tells the gallery.
// It reports false when the item already left processing.
func (s *service) FailAbandoned(ctx context.Context, item models.MediaItem) (bool, error) {
	ok, err := s.repo.MarkFailed(ctx, item.ID, ReasonAbandoned)
	if err != nil || !ok {
		return false, err
	}
	ctx = s.withMediaField(s.withLogFields(ctx, item.EventID.String(), ""), item.ID.String())
	s.releaseQuota(ctx, &item)

	reason := ReasonAbandoned
	item.State = enums.MediaStateFailed
	item.FailureReason = &reason
	s.broadcaster.Publish(ctx, item.EventID.String(), broadcast.EventMediaFailed, broadcast.NewMediaPayload(item))
	return true, nil
}

func (s *service) Purge(ctx context.Context, item models.MediaItem) error {
	var keys []string
	for _, key := range []*string{item.StorageKey, item.PreviewKey} {
		if key != nil && *key != "" {
			keys = append(keys, *key)
		}
	}
	var err error
	for _, key := range keys {
		err = multierr.Append(err, s.store.Delete(ctx, key))
	}
	if err != nil {
		return err
	}
	return s.repo.HardDelete(ctx, item.ID)
}

func (s *service) loadVisible(ctx context.Context, input AccessInput) (*models.MediaItem, *models.Event, error) {
	item, err := s.repo.FindByID(ctx, input.MediaID)
	if err != nil {
		return nil, nil, err
	}
	if item.State == enums.MediaStateDeleted {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
	}
	event, err := s.events.FindByID(ctx, item.EventID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.access.CanViewMedia(event, item, input.Identity, input.ViewPass); err != nil {
		return nil, nil, err
	}
	return item, event, nil
}

func (s *service) withLogFields(ctx context.Context, eventID, userID string) context.Context {
	if s.logg == nil {
		return ctx
	}
	ctx = s.logg.WithEventID(ctx, eventID)
	if userID != "" {
		ctx = s.logg.WithUserID(ctx, userID)
	}
	return ctx
}

func (s *service) withMediaField(ctx context.Context, mediaID string) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithMediaID(ctx, mediaID)
}

func (s *service) logWarn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}

func removeQuietly(paths ...string) {
	for _, p := range paths {
		if p != "" {
			_ = os.Remove(p)
		}
	}
}
