package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/snapwall/snapwall-backend/api/middleware"
	"github.com/snapwall/snapwall-backend/api/responses"
	"github.com/snapwall/snapwall-backend/api/validators"
	"github.com/snapwall/snapwall-backend/internal/media"
	"github.com/snapwall/snapwall-backend/pkg/enums"
	pkgerrors "github.com/snapwall/snapwall-backend/pkg/errors"
	"github.com/snapwall/snapwall-backend/pkg/logger"
	"github.com/snapwall/snapwall-backend/pkg/pagination"
	"github.com/snapwall/snapwall-backend/pkg/storage"
)

const (
	multipartMemory   = 8 << 20
	multipartOverhead = 1 << 20
	uploadFileField   = "file"
)

type bulkDeleteRequest struct {
	MediaIDs []uuid.UUID `json:"media_ids" validate:"required,min=1,max=100"`
}

// MediaUpload accepts one multipart file plus kind, caption, privacy and an optional uploader_id.
func MediaUpload(svc media.Service, maxUploadBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}
		eventID, err := validators.ParseUUIDParam(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithEventID(ctx, eventID.String())
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+multipartOverhead)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodePayloadTooLarge, "upload exceeds the size limit").WithDetails(map[string]any{"max_bytes": maxUploadBytes}))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body"))
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, header, err := r.FormFile(uploadFileField)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file part is required").WithDetails(map[string]any{"field": uploadFileField}))
			return
		}
		defer file.Close()

		claimed := strings.TrimSpace(r.FormValue("uploader_id"))
		if claimed == "" {
			claimed = strings.TrimSpace(r.Header.Get(guestIDHeader))
		}

		res, err := svc.Upload(ctx, media.UploadInput{
			EventID:           eventID,
			Kind:              validators.SanitizeString(r.FormValue("kind"), 16),
			Caption:           r.FormValue("caption"),
			Privacy:           validators.SanitizeString(r.FormValue("privacy"), 16),
			ClaimedUploaderID: claimed,
			Identity:          middleware.IdentityFromContext(ctx),
			ClientIP:          clientIP(r),
			File:              file,
			FileName:          header.Filename,
			Size:              header.Size,
			DeclaredMIME:      header.Header.Get("Content-Type"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if res.GuestToken != "" {
			w.Header().Set(guestTokenHdr, res.GuestToken)
		}
		status := http.StatusCreated
		if res.Media.State == enums.MediaStateProcessing {
			status = http.StatusAccepted
		}
		responses.WriteSuccessStatus(w, status, res)
	}
}

// MediaGet returns item metadata.
func MediaGet(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mediaID, err := validators.ParseUUIDParam(r, "mediaId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Get(r.Context(), accessInput(r, mediaID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// MediaAsset streams a stored variant through the API so storage stays private.
func MediaAsset(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mediaID, err := validators.ParseUUIDParam(r, "mediaId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithMediaID(ctx, mediaID.String())
		}

		asset, err := svc.OpenAsset(ctx, media.AssetInput{
			AccessInput: accessInput(r, mediaID),
			Variant:     r.URL.Query().Get("variant"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		defer asset.Object.Body.Close()

		h := w.Header()
		h.Set("Cache-Control", storage.ImmutableCacheControl)
		if asset.Object.ETag != "" {
			h.Set("ETag", asset.Object.ETag)
			if match := r.Header.Get("If-None-Match"); match != "" && match == asset.Object.ETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
		contentType := asset.Object.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)
		if asset.Object.Size > 0 {
			h.Set("Content-Length", strconv.FormatInt(asset.Object.Size, 10))
		}
		disposition := "inline"
		if asset.Variant == media.VariantOriginal {
			disposition = "attachment"
		}
		h.Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, asset.FileName))

		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		if _, err := io.Copy(w, asset.Object.Body); err != nil && logg != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "media.asset_stream_interrupted")
		}
	}
}

// MediaList returns one gallery page, newest first.
func MediaList(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, err := validators.ParseUUIDParam(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := r.URL.Query()

		res, err := svc.List(r.Context(), media.ListParams{
			EventID:  eventID,
			Identity: middleware.IdentityFromContext(r.Context()),
			ViewPass: viewPass(r),
			Kind:     query.Get("kind"),
			Params: pagination.Params{
				Limit:  limit,
				Cursor: query.Get("cursor"),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}

// MediaLike adds one like.
func MediaLike(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mediaID, err := validators.ParseUUIDParam(r, "mediaId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := svc.Like(r.Context(), media.LikeInput{
			AccessInput: accessInput(r, mediaID),
			ClientIP:    clientIP(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}

// MediaDelete removes one item for its uploader or the event host.
func MediaDelete(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mediaID, err := validators.ParseUUIDParam(r, "mediaId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithMediaID(ctx, mediaID.String())
		}
		if err := svc.Delete(ctx, media.DeleteInput{
			MediaID:  mediaID,
			Identity: middleware.IdentityFromContext(ctx),
		}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// MediaBulkDelete removes several items of one event and reports per-item failures.
func MediaBulkDelete(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, err := validators.ParseUUIDParam(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload bulkDeleteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := svc.BulkDelete(r.Context(), media.BulkDeleteInput{
			EventID:  eventID,
			MediaIDs: payload.MediaIDs,
			Identity: middleware.IdentityFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}

func accessInput(r *http.Request, mediaID uuid.UUID) media.AccessInput {
	return media.AccessInput{
		MediaID:  mediaID,
		Identity: middleware.IdentityFromContext(r.Context()),
		ViewPass: viewPass(r),
	}
}
