package config

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestParseDefaults(t *testing.T) {
	t.Setenv("API_URL", "https://api.example.com/applications")
	t.Setenv("SESSION_SECRET", testSecret)

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != "8080" || cfg.Environment != "development" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.SessionIdleTTL != 30*time.Minute || cfg.SubmitRateWindow != time.Minute || cfg.SubmitRateLimit != 5 {
		t.Fatalf("unexpected durations %+v", cfg)
	}
	if cfg.RecaptchaOnload != "onRecaptchaLoad" || cfg.MaxUploadBytes != 64<<20 {
		t.Fatalf("unexpected recaptcha/upload defaults %+v", cfg)
	}
	if cfg.Production() {
		t.Fatal("development must not be production")
	}
}

func TestParseRequiresAPIURL(t *testing.T) {
	t.Setenv("API_URL", "")
	t.Setenv("SESSION_SECRET", testSecret)

	_, err := Parse()
	if err == nil || !strings.Contains(err.Error(), "APIURL") {
		t.Fatalf("expected APIURL validation error, got %v", err)
	}
}

func TestParseRejectsShortSecret(t *testing.T) {
	t.Setenv("API_URL", "https://api.example.com")
	t.Setenv("SESSION_SECRET", "short")

	if _, err := Parse(); err == nil || !strings.Contains(err.Error(), "SessionSecret") {
		t.Fatalf("expected SessionSecret validation error, got %v", err)
	}
}

func TestParseBadDuration(t *testing.T) {
	t.Setenv("API_URL", "https://api.example.com")
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("SESSION_IDLE_TTL", "forever")

	if _, err := Parse(); err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}
