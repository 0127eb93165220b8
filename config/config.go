package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var (
	validate = newValidator()
	// Redis and Badger keys put a ':' after the session name
	sessionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("session_name", func(fl validator.FieldLevel) bool {
		return sessionNamePattern.MatchString(fl.Field().String())
	})
	return v
}

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Relay     RelayConfig
	Chat      ChatConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	AWS       AWSConfig
	Recording RecordingConfig
	Admin     AdminConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `validate:"required,numeric"`
	ReadTimeout     time.Duration `validate:"min=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
	// Empty or "*" allows any origin.
	CORSAllowedOrigins []string
}

// RelayConfig holds the session and per-connection transport settings.
type RelayConfig struct {
	SessionName         string        `validate:"required,max=64,session_name"`
	InstanceID          string        `validate:"required"`
	OutboundBuffer      int           `validate:"min=1,max=4096"`
	MaxConsecutiveDrops int           `validate:"min=1"`
	ReadLimitBytes      int64         `validate:"min=1024"`
	PingInterval        time.Duration `validate:"gt=0"`
	PongWait            time.Duration `validate:"gtfield=PingInterval"`
	WriteWait           time.Duration `validate:"gt=0"`
	RequireToken        bool
}

// ChatConfig holds chat validation, moderation and history settings.
type ChatConfig struct {
	MaxLength int `validate:"min=1,max=10000"`
	// -1 disables replay.
	HistorySize int `validate:"min=-1,max=1000"`
	// BadgerDB directory. Empty keeps history in memory only.
	HistoryDir  string
	HistoryTTL  time.Duration `validate:"min=0"`
	BannedWords []string
	Replacement string `validate:"required"`
}

// RedisConfig holds Redis connection settings. An empty Addr disables the
// chat bridge, presence and the upload queue.
type RedisConfig struct {
	Addr        string `validate:"omitempty,hostname_port"`
	Password    string
	DB          int           `validate:"min=0,max=15"`
	PresenceTTL time.Duration `validate:"gt=0"`
}

// DatabaseConfig holds PostgreSQL settings. An empty URL disables the archive
// and recordings table.
type DatabaseConfig struct {
	URL             string
	MaxConns        int32 `validate:"min=1"`
	MaxConnLifetime time.Duration
}

// JWTConfig holds socket token signing settings.
type JWTConfig struct {
	Secret      string `validate:"required,min=16"`
	ExpireHours int    `validate:"min=1"`
}

// AWSConfig holds AWS credentials and the recordings bucket. Endpoint points
// at an S3-compatible store such as MinIO.
type AWSConfig struct {
	Region               string `validate:"required"`
	AccessKeyID          string
	SecretAccessKey      string
	Endpoint             string `validate:"omitempty,url"`
	RecordingsBucket     string
	PresignExpireMinutes int `validate:"min=1,max=10080"`
}

// RecordingConfig holds broadcast recording settings.
type RecordingConfig struct {
	// Empty uses os.TempDir()/liverelay-recordings.
	OutputDir       string
	Enabled         bool
	Buffer          int `validate:"min=16"`
	InProcessWorker bool
}

// AdminConfig holds the bcrypt hash of the operator key.
type AdminConfig struct {
	KeyHash string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool { return c.Redis.Addr != "" }

// DatabaseEnabled reports whether a database URL is configured.
func (c *Config) DatabaseEnabled() bool { return c.Database.URL != "" }

// S3Enabled reports whether recordings can be uploaded.
func (c *Config) S3Enabled() bool { return c.AWS.RecordingsBucket != "" }

// Validate checks field constraints and the dependencies between groups.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Recording.Enabled && !c.DatabaseEnabled() {
		return errors.New("invalid config: RECORDING_ENABLED requires DATABASE_URL")
	}
	if c.Recording.InProcessWorker && (!c.RedisEnabled() || !c.S3Enabled()) {
		return errors.New("invalid config: RECORDING_IN_PROCESS_WORKER requires REDIS_ADDR and AWS_S3_RECORDINGS_BUCKET")
	}
	return nil
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "relay"
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvDuration("READ_TIMEOUT", 30*time.Second),
			ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
			CORSAllowedOrigins: splitTrim(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001"), ","),
		},
		Relay: RelayConfig{
			SessionName:         getEnv("RELAY_SESSION", "default"),
			InstanceID:          getEnv("RELAY_INSTANCE_ID", hostname),
			OutboundBuffer:      getEnvInt("RELAY_OUTBOUND_BUFFER", 64),
			MaxConsecutiveDrops: getEnvInt("RELAY_MAX_CONSECUTIVE_DROPS", 16),
			ReadLimitBytes:      int64(getEnvInt("RELAY_READ_LIMIT_BYTES", 8<<20)),
			PingInterval:        getEnvDuration("RELAY_PING_INTERVAL", 30*time.Second),
			PongWait:            getEnvDuration("RELAY_PONG_WAIT", 60*time.Second),
			WriteWait:           getEnvDuration("RELAY_WRITE_WAIT", 10*time.Second),
			RequireToken:        getEnvBool("RELAY_REQUIRE_TOKEN", false),
		},
		Chat: ChatConfig{
			MaxLength:   getEnvInt("CHAT_MAX_LENGTH", 2000),
			HistorySize: getEnvInt("CHAT_HISTORY_SIZE", 50),
			HistoryDir:  getEnv("CHAT_HISTORY_DIR", ""),
			HistoryTTL:  getEnvDuration("CHAT_HISTORY_TTL", 24*time.Hour),
			BannedWords: splitTrim(getEnv("CHAT_BANNED_WORDS", ""), ","),
			Replacement: getEnv("CHAT_REPLACEMENT", "*"),
		},
		Redis: RedisConfig{
			Addr:        getEnv("REDIS_ADDR", ""),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvInt("REDIS_DB", 0),
			PresenceTTL: getEnvDuration("REDIS_PRESENCE_TTL", 2*time.Minute),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        int32(getEnvInt("DB_MAX_CONNS", 10)),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", time.Hour),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:             getEnv("AWS_S3_ENDPOINT", ""),
			RecordingsBucket:     getEnv("AWS_S3_RECORDINGS_BUCKET", ""),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Recording: RecordingConfig{
			Enabled:         getEnvBool("RECORDING_ENABLED", false),
			OutputDir:       getEnv("RECORDING_OUTPUT_DIR", ""),
			Buffer:          getEnvInt("RECORDING_BUFFER", 256),
			InProcessWorker: getEnvBool("RECORDING_IN_PROCESS_WORKER", false),
		},
		Admin: AdminConfig{
			KeyHash: getEnv("ADMIN_KEY_HASH", ""),
		},
		Log: LogConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
