package errors

import "net/http"

// Code is the stable, machine readable error identifier sent to clients.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	// Media pipeline.
	CodeIdentityMismatch     Code = "IDENTITY_MISMATCH"
	CodeUnsupportedMedia     Code = "UNSUPPORTED_MEDIA"
	CodePayloadTooLarge      Code = "PAYLOAD_TOO_LARGE"
	CodeQuotaExceeded        Code = "QUOTA_EXCEEDED"
	CodeStorageWriteFailed   Code = "STORAGE_WRITE_FAILED"
	CodeTranscodeFailed      Code = "TRANSCODE_FAILED"
	CodeTranscodeSpawnFailed Code = "TRANSCODE_SPAWN_FAILED"
)

// Metadata describes how a code surfaces over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	retry    = true
	noRetry  = false
	details  = true
	noDetail = false
)

var metadataByCode = map[Code]Metadata{
	CodeValidation:    {http.StatusBadRequest, noRetry, "validation failed", details},
	CodeUnauthorized:  {http.StatusUnauthorized, noRetry, "authentication required", noDetail},
	CodeForbidden:     {http.StatusForbidden, noRetry, "access denied", noDetail},
	CodeNotFound:      {http.StatusNotFound, noRetry, "resource not found", noDetail},
	CodeConflict:      {http.StatusConflict, noRetry, "conflict detected", noDetail},
	CodeStateConflict: {http.StatusUnprocessableEntity, noRetry, "state transition disallowed", details},
	CodeIdempotency:   {http.StatusConflict, noRetry, "idempotency key reused", details},
	CodeRateLimit:     {http.StatusTooManyRequests, retry, "rate limit exceeded", noDetail},
	CodeInternal:      {http.StatusInternalServerError, retry, "internal server error", noDetail},
	CodeDependency:    {http.StatusServiceUnavailable, retry, "dependency unavailable", details},

	CodeIdentityMismatch:     {http.StatusForbidden, noRetry, "uploader does not match the authenticated user", noDetail},
	CodeUnsupportedMedia:     {http.StatusUnsupportedMediaType, noRetry, "unsupported media type", details},
	CodePayloadTooLarge:      {http.StatusRequestEntityTooLarge, noRetry, "file too large", details},
	CodeQuotaExceeded:        {http.StatusForbidden, noRetry, "storage limit exceeded", details},
	CodeStorageWriteFailed:   {http.StatusBadGateway, retry, "failed to store media", noDetail},
	CodeTranscodeFailed:      {http.StatusInternalServerError, noRetry, "video processing failed", noDetail},
	CodeTranscodeSpawnFailed: {http.StatusInternalServerError, noRetry, "video processing unavailable", noDetail},
}

// MetadataFor falls back to the INTERNAL_ERROR row for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}
