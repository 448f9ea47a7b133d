package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Media        MediaConfig
	Transcode    TranscodeConfig
	Storage      StorageConfig
	Broadcast    BroadcastConfig
	Quota        QuotaConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SNAPWALL_APP_ENV" required:"true"`
	Port         string `envconfig:"SNAPWALL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SNAPWALL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SNAPWALL_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"SNAPWALL_LOG_FORMAT" default:"json"`
	CORSOrigins  string `envconfig:"SNAPWALL_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	out := []string{}
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type ServiceConfig struct {
	Kind string `envconfig:"SNAPWALL_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SNAPWALL_DB_DSN"`
	Driver string `envconfig:"SNAPWALL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SNAPWALL_DB_HOST"`
	LegacyPort     int    `envconfig:"SNAPWALL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SNAPWALL_DB_USER"`
	LegacyPassword string `envconfig:"SNAPWALL_DB_PASSWORD"`
	LegacyName     string `envconfig:"SNAPWALL_DB_NAME"`
	LegacySSLMode  string `envconfig:"SNAPWALL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SNAPWALL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SNAPWALL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SNAPWALL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SNAPWALL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"SNAPWALL_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SNAPWALL_REDIS_URL"`
	Address      string        `envconfig:"SNAPWALL_REDIS_ADDR"`
	Password     string        `envconfig:"SNAPWALL_REDIS_PASSWORD"`
	DB           int           `envconfig:"SNAPWALL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SNAPWALL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SNAPWALL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SNAPWALL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SNAPWALL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SNAPWALL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any Redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string        `envconfig:"SNAPWALL_JWT_SECRET" required:"true"`
	Issuer            string        `envconfig:"SNAPWALL_JWT_ISSUER" required:"true"`
	ExpirationMinutes int           `envconfig:"SNAPWALL_JWT_EXPIRATION_MINUTES" default:"60"`
	GuestSessionTTL   time.Duration `envconfig:"SNAPWALL_GUEST_SESSION_TTL" default:"72h"`
	EventViewPassTTL  time.Duration `envconfig:"SNAPWALL_EVENT_VIEW_PASS_TTL" default:"12h"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SNAPWALL_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SNAPWALL_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SNAPWALL_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SNAPWALL_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SNAPWALL_ARGON_KEY_LEN" default:"32"`
}

type RateLimitConfig struct {
	Backend       string        `envconfig:"SNAPWALL_RATE_LIMIT_BACKEND" default:"redis"`
	SweepInterval time.Duration `envconfig:"SNAPWALL_RATE_LIMIT_SWEEP_INTERVAL" default:"1m"`
	UploadWindow  time.Duration `envconfig:"SNAPWALL_RATE_LIMIT_UPLOAD_WINDOW" default:"1h"`
	UploadLimit   int           `envconfig:"SNAPWALL_RATE_LIMIT_UPLOAD_LIMIT" default:"50"`
	PINWindow     time.Duration `envconfig:"SNAPWALL_RATE_LIMIT_PIN_WINDOW" default:"5m"`
	PINLimit      int           `envconfig:"SNAPWALL_RATE_LIMIT_PIN_LIMIT" default:"5"`
	LikeWindow    time.Duration `envconfig:"SNAPWALL_RATE_LIMIT_LIKE_WINDOW" default:"1m"`
	LikeLimit     int           `envconfig:"SNAPWALL_RATE_LIMIT_LIKE_LIMIT" default:"120"`
	LiveWindow    time.Duration `envconfig:"SNAPWALL_RATE_LIMIT_LIVE_WINDOW" default:"1m"`
	LiveLimit     int           `envconfig:"SNAPWALL_RATE_LIMIT_LIVE_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SNAPWALL_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SNAPWALL_AUTO_MIGRATE" default:"false"`
}

type MediaConfig struct {
	MaxUploadMB    int    `envconfig:"SNAPWALL_MAX_UPLOAD_MB" default:"200"`
	TempDir        string `envconfig:"SNAPWALL_MEDIA_TEMP_DIR"`
	ImageMaxWidth  int    `envconfig:"SNAPWALL_MEDIA_IMAGE_MAX_WIDTH" default:"1920"`
	ImageMaxHeight int    `envconfig:"SNAPWALL_MEDIA_IMAGE_MAX_HEIGHT" default:"1080"`
	ImageQuality   int    `envconfig:"SNAPWALL_MEDIA_IMAGE_QUALITY" default:"80"`
}

// MaxUploadBytes converts the configured ceiling to bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 0
	}
	return int64(m.MaxUploadMB) * 1024 * 1024
}

type TranscodeConfig struct {
	Binary       string        `envconfig:"SNAPWALL_TRANSCODER_BIN" default:"ffmpeg"`
	Concurrency  int           `envconfig:"SNAPWALL_TRANSCODE_CONCURRENCY" default:"2"`
	Timeout      time.Duration `envconfig:"SNAPWALL_TRANSCODE_TIMEOUT" default:"10m"`
	MaxHeight    int           `envconfig:"SNAPWALL_TRANSCODE_MAX_HEIGHT" default:"720"`
	CRF          int           `envconfig:"SNAPWALL_TRANSCODE_CRF" default:"23"`
	Preset       string        `envconfig:"SNAPWALL_TRANSCODE_PRESET" default:"veryfast"`
	MaxBitrate   string        `envconfig:"SNAPWALL_TRANSCODE_MAX_BITRATE" default:"2500k"`
	AudioBitrate string        `envconfig:"SNAPWALL_TRANSCODE_AUDIO_BITRATE" default:"128k"`
}

type StorageConfig struct {
	Bucket          string        `envconfig:"SNAPWALL_S3_BUCKET" required:"true"`
	Region          string        `envconfig:"SNAPWALL_S3_REGION" default:"us-east-1"`
	Endpoint        string        `envconfig:"SNAPWALL_S3_ENDPOINT"`
	AccessKeyID     string        `envconfig:"SNAPWALL_S3_ACCESS_KEY_ID"`
	SecretAccessKey string        `envconfig:"SNAPWALL_S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool          `envconfig:"SNAPWALL_S3_USE_PATH_STYLE" default:"false"`
	PartSizeMB      int64         `envconfig:"SNAPWALL_S3_PART_SIZE_MB" default:"8"`
	BreakerFailures uint32        `envconfig:"SNAPWALL_S3_BREAKER_FAILURES" default:"5"`
	BreakerTimeout  time.Duration `envconfig:"SNAPWALL_S3_BREAKER_TIMEOUT" default:"30s"`
}

type BroadcastConfig struct {
	RelayEnabled  bool   `envconfig:"SNAPWALL_BROADCAST_RELAY_ENABLED" default:"false"`
	RelayChannel  string `envconfig:"SNAPWALL_BROADCAST_RELAY_CHANNEL" default:"sw:broadcast"`
	ClientBuffer  int    `envconfig:"SNAPWALL_BROADCAST_CLIENT_BUFFER" default:"64"`
	InboundPerSec int    `envconfig:"SNAPWALL_BROADCAST_INBOUND_PER_SEC" default:"5"`
	InboundBurst  int    `envconfig:"SNAPWALL_BROADCAST_INBOUND_BURST" default:"10"`
}

type QuotaConfig struct {
	DefaultLimitBytes int64 `envconfig:"SNAPWALL_QUOTA_DEFAULT_LIMIT_BYTES" default:"5368709120"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"SNAPWALL_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	MediaTopic   string `envconfig:"SNAPWALL_PUBSUB_MEDIA_TOPIC"`
	OrderByEvent bool   `envconfig:"SNAPWALL_PUBSUB_ORDER_BY_EVENT" default:"true"`
}

// Enabled reports whether lifecycle mirroring to Pub/Sub is configured.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.MediaTopic) != ""
}

type CronConfig struct {
	Interval             time.Duration `envconfig:"SNAPWALL_CRON_INTERVAL" default:"1h"`
	LockTTL              time.Duration `envconfig:"SNAPWALL_CRON_LOCK_TTL" default:"10m"`
	JobTimeout           time.Duration `envconfig:"SNAPWALL_CRON_JOB_TIMEOUT" default:"5m"`
	FailedMediaRetention time.Duration `envconfig:"SNAPWALL_FAILED_MEDIA_RETENTION" default:"24h"`
	AbandonedAfter       time.Duration `envconfig:"SNAPWALL_ABANDONED_PROCESSING_AFTER" default:"1h"`
	ExpiredEventGrace    time.Duration `envconfig:"SNAPWALL_EXPIRED_EVENT_GRACE" default:"720h"`
	BatchSize            int           `envconfig:"SNAPWALL_CRON_BATCH_SIZE" default:"100"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
