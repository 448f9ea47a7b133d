package media

import (
	"context"
	"strings"

	"github.com/snapwall/snapwall-backend/internal/access"
	"github.com/snapwall/snapwall-backend/pkg/db/models"
	"github.com/snapwall/snapwall-backend/pkg/enums"
	pkgerrors "github.com/snapwall/snapwall-backend/pkg/errors"
	"github.com/snapwall/snapwall-backend/pkg/pagination"
)

// List returns one page of an event gallery. Private items are filtered per viewer.
func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	event, err := s.events.FindByID(ctx, params.EventID)
	if err != nil {
		return nil, err
	}
	if err := s.access.CanViewEvent(event, params.Identity, params.ViewPass); err != nil {
		return nil, err
	}

	limit := pagination.NormalizeLimit(params.Limit)
	viewerID := access.ViewerID(params.Identity)
	query := listQuery{
		eventID:        event.ID,
		viewerID:       viewerID,
		includePrivate: event.IsHost(viewerID) || params.Identity.IsAdmin(),
		limit:          pagination.LimitWithBuffer(params.Limit),
	}

	if raw := strings.TrimSpace(params.Kind); raw != "" {
		kind, err := enums.ParseMediaKind(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind filter")
		}
		query.kind = &kind
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	query.cursor = cursor

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, nextCursor := pagination.Trim(rows, limit, func(m models.MediaItem) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.UploadedAt, ID: m.ID}
	})

	items := make([]MediaDTO, len(rows))
	for i, row := range rows {
		items[i] = toDTO(row)
	}
	return &ListResult{Items: items, Cursor: nextCursor}, nil
}
