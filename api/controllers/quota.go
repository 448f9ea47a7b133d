package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/snapwall/snapwall-backend/api/middleware"
	"github.com/snapwall/snapwall-backend/api/responses"
	"github.com/snapwall/snapwall-backend/api/validators"
	"github.com/snapwall/snapwall-backend/pkg/db/models"
	pkgerrors "github.com/snapwall/snapwall-backend/pkg/errors"
	"github.com/snapwall/snapwall-backend/pkg/logger"
)

type quotaReader interface {
	EnsureAccount(ctx context.Context, userID uuid.UUID, limit int64) error
	Get(ctx context.Context, userID uuid.UUID) (*models.QuotaAccount, error)
}

type quotaWriter interface {
	quotaReader
	SetLimit(ctx context.Context, userID uuid.UUID, limit int64) error
}

type quotaResponse struct {
	UserID         uuid.UUID `json:"user_id"`
	UsedBytes      int64     `json:"storage_used_bytes"`
	LimitBytes     int64     `json:"storage_limit_bytes"`
	RemainingBytes int64     `json:"remaining_bytes"`
	Unlimited      bool      `json:"unlimited"`
}

type setQuotaLimitRequest struct {
	LimitBytes *int64 `json:"storage_limit_bytes" validate:"required,min=-1"`
}

func toQuotaResponse(account *models.QuotaAccount) quotaResponse {
	return quotaResponse{
		UserID:         account.UserID,
		UsedBytes:      account.StorageUsedBytes,
		LimitBytes:     account.StorageLimitBytes,
		RemainingBytes: account.RemainingBytes(),
		Unlimited:      account.IsUnlimited(),
	}
}

// QuotaMe returns the caller's storage account, provisioning it on first read.
func QuotaMe(ledger quotaReader, defaultLimit int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.IdentityFromContext(r.Context()).UserUUID()
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "quota is tracked for registered users only"))
			return
		}
		if err := ledger.EnsureAccount(r.Context(), userID, defaultLimit); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		account, err := ledger.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toQuotaResponse(account))
	}
}

// AdminQuotaSetLimit changes a user's storage ceiling. -1 means unlimited.
func AdminQuotaSetLimit(ledger quotaWriter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParseUUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload setQuotaLimitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := ledger.SetLimit(r.Context(), userID, *payload.LimitBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		account, err := ledger.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithFields(r.Context(), map[string]any{
				"target_user_id": userID.String(),
				"limit_bytes":    account.StorageLimitBytes,
			}), "quota.limit_updated")
		}
		responses.WriteSuccess(w, toQuotaResponse(account))
	}
}
