package controllers

import (
	"net/http"
	"strings"

	"github.com/snapwall/snapwall-backend/api/middleware"
)

const (
	viewPassHeader = "X-Event-Pass"
	viewPassQuery  = "pass"
	guestIDHeader  = "X-Guest-Id"
	guestTokenHdr  = "X-Guest-Token"
)

// viewPass reads the PIN view pass from the header, or the query string for websocket clients.
func viewPass(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(viewPassHeader)); v != "" {
		return v
	}
	return strings.TrimSpace(r.URL.Query().Get(viewPassQuery))
}

func clientIP(r *http.Request) string {
	if ip := middleware.ClientIPFromContext(r.Context()); ip != "" {
		return ip
	}
	return middleware.ClientIP(r)
}
