package events

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/snapwall/snapwall-backend/internal/access"
	"github.com/snapwall/snapwall-backend/internal/broadcast"
	"github.com/snapwall/snapwall-backend/internal/ratelimit"
	"github.com/snapwall/snapwall-backend/pkg/auth"
	"github.com/snapwall/snapwall-backend/pkg/config"
	"github.com/snapwall/snapwall-backend/pkg/db/models"
	"github.com/snapwall/snapwall-backend/pkg/enums"
	pkgerrors "github.com/snapwall/snapwall-backend/pkg/errors"
	"github.com/snapwall/snapwall-backend/pkg/logger"
	"github.com/snapwall/snapwall-backend/pkg/security"
	"github.com/snapwall/snapwall-backend/pkg/storage"
)

const (
	maxNameRunes     = 120
	generatedPINSize = 6
)

var pinPattern = regexp.MustCompile(`^[0-9]{4,12}$`)

type eventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	IncrementViews(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type mediaRepository interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.MediaItem, error)
	Tombstone(ctx context.Context, id uuid.UUID, from enums.MediaState) (bool, error)
}

type quotaReleaser interface {
	Release(ctx context.Context, userID uuid.UUID, delta int64) error
}

// Service manages event lifecycle and PIN access.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CreateResult, error)
	Get(ctx context.Context, input ViewInput) (*EventDTO, error)
	// Authorize checks read access without counting a view.
	Authorize(ctx context.Context, input ViewInput) error
	VerifyPIN(ctx context.Context, input VerifyPINInput) (*ViewPass, error)
	Delete(ctx context.Context, input DeleteInput) error
	// Purge removes an event and its assets without an ownership check.
	Purge(ctx context.Context, event *models.Event) error
}

// ServiceParams groups dependencies for the event service.
type ServiceParams struct {
	Repo        eventRepository
	Media       mediaRepository
	Store       storage.ObjectStore
	Quota       quotaReleaser
	Broadcaster broadcast.Publisher
	Limiter     ratelimit.Limiter
	Policies    ratelimit.Policies
	JWT         config.JWTConfig
	Password    config.PasswordConfig
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	repo        eventRepository
	media       mediaRepository
	store       storage.ObjectStore
	quota       quotaReleaser
	broadcaster broadcast.Publisher
	limiter     ratelimit.Limiter
	pinPolicy   ratelimit.Policy
	access      access.Checker
	jwt         config.JWTConfig
	password    config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds an event service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event repo is required")
	case params.Media == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media repo is required")
	case params.Store == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "object store is required")
	case params.Quota == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quota ledger is required")
	case params.Broadcaster == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "broadcaster is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        params.Repo,
		media:       params.Media,
		store:       params.Store,
		quota:       params.Quota,
		broadcaster: params.Broadcaster,
		limiter:     params.Limiter,
		pinPolicy:   params.Policies.PIN,
		access:      access.NewChecker(params.JWT),
		jwt:         params.JWT,
		password:    params.Password,
		logg:        params.Logger,
		now:         now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	hostID, ok := input.Identity.UserUUID()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "a registered account is required to host events")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if utf8.RuneCountInString(name) > maxNameRunes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("name must be at most %d characters", maxNameRunes))
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expires_at must be in the future")
	}

	pin := strings.TrimSpace(input.PIN)
	generated := ""
	if pin == "" && input.GeneratePIN {
		var err error
		pin, err = security.GeneratePIN(generatedPINSize)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate pin")
		}
		generated = pin
	}

	event := &models.Event{HostID: hostID, Name: name}
	if input.ExpiresAt != nil {
		expires := input.ExpiresAt.UTC()
		event.ExpiresAt = &expires
	}
	if pin != "" {
		if !pinPattern.MatchString(pin) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "pin must be 4 to 12 digits")
		}
		hash, err := security.HashPIN(pin, s.password)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash pin")
		}
		event.PINHash = &hash
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithEventID(ctx, event.ID.String()), "events.created")
	}
	return &CreateResult{Event: toDTO(*event), PIN: generated}, nil
}

// Get returns the event and counts the view. PIN-protected events need a view pass.
func (s *service) Get(ctx context.Context, input ViewInput) (*EventDTO, error) {
	event, err := s.repo.FindByID(ctx, input.EventID)
	if err != nil {
		return nil, err
	}
	if err := s.access.CanViewEvent(event, input.Identity, input.ViewPass); err != nil {
		return nil, err
	}
	if err := s.repo.IncrementViews(ctx, event.ID); err != nil {
		return nil, err
	}
	event.Views++
	dto := toDTO(*event)
	return &dto, nil
}

func (s *service) Authorize(ctx context.Context, input ViewInput) error {
	event, err := s.repo.FindByID(ctx, input.EventID)
	if err != nil {
		return err
	}
	return s.access.CanViewEvent(event, input.Identity, input.ViewPass)
}

// VerifyPIN exchanges a correct PIN for a view pass. Attempts are throttled per client and event.
func (s *service) VerifyPIN(ctx context.Context, input VerifyPINInput) (*ViewPass, error) {
	if err := s.pinPolicy.Check(ctx, s.limiter, input.ClientIP, input.EventID.String()); err != nil {
		return nil, err
	}
	event, err := s.repo.FindByID(ctx, input.EventID)
	if err != nil {
		return nil, err
	}
	if event.HasPIN() {
		ok, err := security.VerifyPIN(strings.TrimSpace(input.PIN), *event.PINHash)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify pin")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "incorrect pin")
		}
	}

	now := s.now()
	token, err := auth.MintEventViewPass(s.jwt, now, event.ID, access.ViewerID(input.Identity))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint view pass")
	}
	return &ViewPass{Token: token, ExpiresAt: now.Add(s.jwt.EventViewPassTTL).UTC()}, nil
}

// Delete removes an event on behalf of its host or an admin.
func (s *service) Delete(ctx context.Context, input DeleteInput) error {
	if input.Identity == nil || input.Identity.ID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	event, err := s.repo.FindByID(ctx, input.EventID)
	if err != nil {
		return err
	}
	if !input.Identity.IsAdmin() && !event.IsHost(input.Identity.ID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the host may delete this event")
	}
	return s.Purge(ctx, event)
}

// Purge tombstones every item, releases the quota of items that still held it,
// deletes stored objects and finally the rows. A failed object delete leaves the
// event in place so the operation can be retried.
func (s *service) Purge(ctx context.Context, event *models.Event) error {
	if s.logg != nil {
		ctx = s.logg.WithEventID(ctx, event.ID.String())
	}
	items, err := s.media.ListByEvent(ctx, event.ID)
	if err != nil {
		return err
	}

	released := make(map[uuid.UUID]int64)
	var keys []string
	for _, item := range items {
		if item.State != enums.MediaStateDeleted {
			ok, err := s.media.Tombstone(ctx, item.ID, item.State)
			if err != nil {
				return err
			}
			if ok && item.State != enums.MediaStateFailed && item.ChargesQuota() {
				if userID, err := uuid.Parse(item.UploaderID); err == nil {
					released[userID] += item.SizeBytes
				}
			}
		}
		for _, key := range []*string{item.StorageKey, item.PreviewKey} {
			if key != nil && *key != "" {
				keys = append(keys, *key)
			}
		}
	}

	for userID, bytes := range released {
		if err := s.quota.Release(ctx, userID, bytes); err != nil && s.logg != nil {
			s.logg.Error(s.logg.WithUserID(ctx, userID.String()), "events.quota_release_failed", err)
		}
	}

	var deleteErr error
	for _, key := range keys {
		deleteErr = multierr.Append(deleteErr, s.store.Delete(ctx, key))
	}
	if deleteErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, deleteErr, "delete event objects")
	}

	if err := s.repo.Delete(ctx, event.ID); err != nil {
		return err
	}
	s.broadcaster.Publish(ctx, event.ID.String(), broadcast.EventEventDeleted, broadcast.EventDeletedPayload{EventID: event.ID.String()})
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "media_count", len(items)), "events.deleted")
	}
	return nil
}
