package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/snapwall/snapwall-backend/api/middleware"
	"github.com/snapwall/snapwall-backend/api/responses"
	"github.com/snapwall/snapwall-backend/api/validators"
	"github.com/snapwall/snapwall-backend/internal/broadcast"
	"github.com/snapwall/snapwall-backend/internal/events"
	"github.com/snapwall/snapwall-backend/pkg/logger"
)

// LiveOptions tunes websocket subscriptions.
type LiveOptions struct {
	AllowedOrigins []string
	Buffer         int
	InboundPerSec  float64
	InboundBurst   int
}

// EventLive upgrades to a websocket subscribed to the event channel. Access is checked before the upgrade,
// and later join requests are checked against the caller's identity.
func EventLive(hub *broadcast.Hub, svc events.Service, opts LiveOptions, logg *logger.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}

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
		ident := middleware.IdentityFromContext(ctx)

		if err := svc.Authorize(ctx, events.ViewInput{EventID: eventID, Identity: ident, ViewPass: viewPass(r)}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error.
			if logg != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "live.upgrade_failed")
			}
			return
		}

		userID := ""
		if ident != nil {
			userID = ident.ID
		}
		client := broadcast.NewClient(hub, conn, broadcast.ClientOptions{
			UserID:        userID,
			Buffer:        opts.Buffer,
			InboundPerSec: opts.InboundPerSec,
			InboundBurst:  opts.InboundBurst,
			Logger:        logg,
			CanJoin: func(raw string) bool {
				id, err := uuid.Parse(raw)
				if err != nil {
					return false
				}
				return svc.Authorize(context.WithoutCancel(ctx), events.ViewInput{EventID: id, Identity: ident}) == nil
			},
		})
		if logg != nil {
			logg.Debug(ctx, "live.connected")
		}
		client.Serve(ctx, eventID.String())
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	wildcard := false
	for _, origin := range allowed {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			wildcard = true
		}
		if origin != "" {
			set[strings.ToLower(origin)] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}
