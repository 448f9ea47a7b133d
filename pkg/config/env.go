package config

// EnvPrefix is handed to envconfig; every field also carries its full variable name.
const EnvPrefix = "SNAPWALL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "SNAPWALL_APP_ENV"
	EnvPort     = "SNAPWALL_APP_PORT"
	EnvLogLevel = "SNAPWALL_LOG_LEVEL"

	EnvDBDSN  = "SNAPWALL_DB_DSN"
	EnvDBHost = "SNAPWALL_DB_HOST"
	EnvDBUser = "SNAPWALL_DB_USER"
	EnvDBName = "SNAPWALL_DB_NAME"

	EnvRedisURL = "SNAPWALL_REDIS_URL"

	EnvJWTSecret = "SNAPWALL_JWT_SECRET"
	EnvJWTIssuer = "SNAPWALL_JWT_ISSUER"

	EnvS3Bucket   = "SNAPWALL_S3_BUCKET"
	EnvS3Endpoint = "SNAPWALL_S3_ENDPOINT"

	EnvTranscodeConcurrency = "SNAPWALL_TRANSCODE_CONCURRENCY"
	EnvRateLimitBackend     = "SNAPWALL_RATE_LIMIT_BACKEND"
	EnvPubSubMediaTopic     = "SNAPWALL_PUBSUB_MEDIA_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
