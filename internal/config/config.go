package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultGeminiModels is the candidate order used when GEMINI_MODELS is unset, most capable first.
var DefaultGeminiModels = []string{
	"models/gemini-2.5-flash-image",
	"models/gemini-3-pro-image-preview",
	"models/gemini-2.0-flash-exp-image-generation",
}

// Config aggregates runtime configuration for the API, admin service and supporting clients.
// It is loaded once at startup and passed by value; nothing mutates it afterwards.
type Config struct {
	DBDriver string
	DBDSN    string

	APIListenAddr   string
	AdminListenAddr string
	AdminUsername   string
	AdminPassword   string
	CORSOrigins     []string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	SignupCredits   int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GeminiAPIKey     string
	GeminiModels     []string
	GeminiGuestModel string
	GeminiTimeout    time.Duration

	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3UsePathStyle bool
	S3PresignTTL   time.Duration

	TelegramBotToken    string
	TelegramAlertChatID int64

	LogLevel  string
	LogFormat string

	SweepGracePeriod time.Duration
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBDriver:            strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		DBDSN:               os.Getenv("DB_DSN"),
		APIListenAddr:       getEnv("API_LISTEN_ADDR", ":8000"),
		AdminListenAddr:     getEnv("ADMIN_LISTEN_ADDR", ":8080"),
		AdminUsername:       getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:       getEnv("ADMIN_PASSWORD", "change-me"),
		CORSOrigins:         getList("CORS_ORIGINS", []string{"*"}),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		AccessTokenTTL:      getDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
		RefreshTokenTTL:     getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		SignupCredits:       getInt("SIGNUP_CREDITS", 2500),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             getInt("REDIS_DB", 0),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModels:        getList("GEMINI_MODELS", DefaultGeminiModels),
		GeminiGuestModel:    getEnv("GEMINI_GUEST_MODEL", "models/gemini-3-pro-image-preview"),
		GeminiTimeout:       getDuration("GEMINI_TIMEOUT", 90*time.Second),
		S3Endpoint:          os.Getenv("S3_ENDPOINT"),
		S3Region:            os.Getenv("S3_REGION"),
		S3AccessKey:         os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:         os.Getenv("S3_SECRET_KEY"),
		S3Bucket:            os.Getenv("S3_BUCKET"),
		S3UsePathStyle:      getBool("S3_USE_PATH_STYLE", false),
		S3PresignTTL:        getDuration("S3_PRESIGN_TTL", time.Hour),
		TelegramBotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramAlertChatID: getInt64("TELEGRAM_ALERT_CHAT_ID", 0),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
		SweepGracePeriod:    getDuration("SWEEP_GRACE_PERIOD", 24*time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every missing or malformed required setting at once.
func (c Config) Validate() error {
	var missing []string
	if c.DBDSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if c.S3Region == "" {
		missing = append(missing, "S3_REGION")
	}
	if c.S3AccessKey == "" {
		missing = append(missing, "S3_ACCESS_KEY")
	}
	if c.S3SecretKey == "" {
		missing = append(missing, "S3_SECRET_KEY")
	}
	if c.S3Bucket == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}

	switch c.DBDriver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want mysql or sqlite)", c.DBDriver)
	}
	if len(c.GeminiModels) == 0 {
		return errors.New("GEMINI_MODELS must list at least one model")
	}
	if c.TelegramBotToken != "" && c.TelegramAlertChatID == 0 {
		return errors.New("TELEGRAM_ALERT_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// loadEnvFile loads the first env file found. A missing file is not an error:
// containers usually inject the environment directly.
func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	return nil
}
