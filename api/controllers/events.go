package controllers

import (
	"net/http"
	"time"

	"github.com/snapwall/snapwall-backend/api/middleware"
	"github.com/snapwall/snapwall-backend/api/responses"
	"github.com/snapwall/snapwall-backend/api/validators"
	"github.com/snapwall/snapwall-backend/internal/events"
	pkgerrors "github.com/snapwall/snapwall-backend/pkg/errors"
	"github.com/snapwall/snapwall-backend/pkg/logger"
)

type createEventRequest struct {
	Name        string     `json:"name" validate:"required,max=120"`
	ExpiresAt   *time.Time `json:"expires_at"`
	PIN         string     `json:"pin" validate:"omitempty,numeric,min=4,max=12"`
	GeneratePIN bool       `json:"generate_pin"`
}

type verifyPINRequest struct {
	PIN string `json:"pin" validate:"required"`
}

// EventCreate creates an event hosted by the caller.
func EventCreate(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event service unavailable"))
			return
		}

		var payload createEventRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res, err := svc.Create(r.Context(), events.CreateInput{
			Identity:    middleware.IdentityFromContext(r.Context()),
			Name:        payload.Name,
			ExpiresAt:   payload.ExpiresAt,
			PIN:         payload.PIN,
			GeneratePIN: payload.GeneratePIN,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, res)
	}
}

// EventGet returns the event and counts a view.
func EventGet(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, err := validators.ParseUUIDParam(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithEventID(ctx, eventID.String())
		}

		dto, err := svc.Get(ctx, events.ViewInput{
			EventID:  eventID,
			Identity: middleware.IdentityFromContext(ctx),
			ViewPass: viewPass(r),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// EventDelete removes the event, its media and assets.
func EventDelete(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, err := validators.ParseUUIDParam(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithEventID(ctx, eventID.String())
		}

		if err := svc.Delete(ctx, events.DeleteInput{
			EventID:  eventID,
			Identity: middleware.IdentityFromContext(ctx),
		}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// EventVerifyPIN exchanges the event PIN for a view pass.
func EventVerifyPIN(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, err := validators.ParseUUIDParam(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload verifyPINRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pass, err := svc.VerifyPIN(r.Context(), events.VerifyPINInput{
			EventID:  eventID,
			PIN:      payload.PIN,
			ClientIP: clientIP(r),
			Identity: middleware.IdentityFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pass)
	}
}
