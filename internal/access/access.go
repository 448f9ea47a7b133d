// Package access decides who may see an event gallery and its media.
package access

import (
	"strings"

	"github.com/snapwall/snapwall-backend/pkg/auth"
	"github.com/snapwall/snapwall-backend/pkg/config"
	"github.com/snapwall/snapwall-backend/pkg/db/models"
	pkgerrors "github.com/snapwall/snapwall-backend/pkg/errors"
)

// Checker validates event view passes against the JWT settings.
type Checker struct {
	jwt config.JWTConfig
}

func NewChecker(cfg config.JWTConfig) Checker {
	return Checker{jwt: cfg}
}

// CanViewEvent allows hosts, admins, events without a PIN, and holders of a pass for this event.
func (c Checker) CanViewEvent(event *models.Event, ident *auth.Identity, viewPass string) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	if !event.HasPIN() {
		return nil
	}
	if ident != nil && (ident.IsAdmin() || event.IsHost(ident.ID)) {
		return nil
	}
	pass := strings.TrimSpace(viewPass)
	if pass == "" {
		return pkgerrors.New(pkgerrors.CodeForbidden, "event pin required")
	}
	if _, err := auth.ParseEventViewPass(c.jwt, pass, event.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "event view pass invalid")
	}
	return nil
}

// CanViewMedia layers item privacy over event access.
func (c Checker) CanViewMedia(event *models.Event, item *models.MediaItem, ident *auth.Identity, viewPass string) error {
	if err := c.CanViewEvent(event, ident, viewPass); err != nil {
		return err
	}
	if ident != nil && ident.IsAdmin() {
		return nil
	}
	if !item.VisibleTo(ViewerID(ident), event.HostID) {
		// Hidden items are indistinguishable from missing ones.
		return pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
	}
	return nil
}

// CanManageMedia allows the uploader, the event host, and admins.
func CanManageMedia(event *models.Event, item *models.MediaItem, ident *auth.Identity) error {
	if ident == nil || ident.ID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if ident.IsAdmin() || ident.ID == item.UploaderID || (event != nil && event.IsHost(ident.ID)) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "only the uploader or event host may modify this media")
}

// ViewerID returns the caller id used for privacy checks, or "" when anonymous.
func ViewerID(ident *auth.Identity) string {
	if ident == nil {
		return ""
	}
	return ident.ID
}
