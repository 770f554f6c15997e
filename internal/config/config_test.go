package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_ENV_PATH", t.TempDir()+"/missing.env")
	t.Setenv("DB_DSN", "file:test.db")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("S3_REGION", "ap-south-1")
	t.Setenv("S3_ACCESS_KEY", "ak")
	t.Setenv("S3_SECRET_KEY", "sk")
	t.Setenv("S3_BUCKET", "magicpic")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBDriver != "mysql" {
		t.Errorf("DBDriver = %q, want mysql", cfg.DBDriver)
	}
	if cfg.SignupCredits != 2500 {
		t.Errorf("SignupCredits = %d, want 2500", cfg.SignupCredits)
	}
	if cfg.GeminiTimeout != 90*time.Second {
		t.Errorf("GeminiTimeout = %v, want 90s", cfg.GeminiTimeout)
	}
	if !reflect.DeepEqual(cfg.GeminiModels, DefaultGeminiModels) {
		t.Errorf("GeminiModels = %v, want %v", cfg.GeminiModels, DefaultGeminiModels)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("GEMINI_MODELS", " a , ,b ")
	t.Setenv("GEMINI_TIMEOUT", "5s")
	t.Setenv("S3_USE_PATH_STYLE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBDriver != "sqlite" {
		t.Errorf("DBDriver = %q, want sqlite", cfg.DBDriver)
	}
	if !reflect.DeepEqual(cfg.GeminiModels, []string{"a", "b"}) {
		t.Errorf("GeminiModels = %v", cfg.GeminiModels)
	}
	if cfg.GeminiTimeout != 5*time.Second {
		t.Errorf("GeminiTimeout = %v", cfg.GeminiTimeout)
	}
	if !cfg.S3UsePathStyle {
		t.Error("S3UsePathStyle = false, want true")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("S3_BUCKET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() error = nil, want missing variables")
	}
	for _, name := range []string{"JWT_SECRET", "S3_BUCKET"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention %s", err, name)
		}
	}
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_DRIVER", "postgres")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "DB_DRIVER") {
		t.Fatalf("Load() error = %v, want DB_DRIVER error", err)
	}
}

func TestValidateTelegramNeedsChat(t *testing.T) {
	setRequired(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want chat id error")
	}
}
