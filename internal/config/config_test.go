package config

import (
    "testing"
    "time"
)

func TestLoadRateLimitConfigDefaults(t *testing.T) {
    t.Setenv("RATE_LIMIT_BACKEND", "")
    t.Setenv("RATE_LIMIT_ENABLED", "")
    cfg := LoadRateLimitConfig()
    if !cfg.Enabled || cfg.Backend != "memory" || cfg.Prefix != "rl" {
        t.Fatalf("unexpected defaults: %+v", cfg)
    }
}

func TestLoadRateLimitConfigUnknownBackend(t *testing.T) {
    t.Setenv("RATE_LIMIT_BACKEND", "memcached")
    if got := LoadRateLimitConfig().Backend; got != "memory" {
        t.Fatalf("backend = %q, want memory", got)
    }
    t.Setenv("RATE_LIMIT_BACKEND", "REDIS")
    if got := LoadRateLimitConfig().Backend; got != "redis" {
        t.Fatalf("backend = %q, want redis", got)
    }
}

func TestEnvHelpers(t *testing.T) {
    t.Setenv("X_BOOL", "off")
    t.Setenv("X_INT", "nope")
    t.Setenv("X_DUR", "90s")
    t.Setenv("X_LIST", " a, ,b ,")
    if envBool("X_BOOL", true) {
        t.Error("envBool should parse off as false")
    }
    if envInt("X_INT", 7) != 7 {
        t.Error("envInt should fall back on parse errors")
    }
    if envDur("X_DUR", 0) != 90*time.Second {
        t.Error("envDur did not parse 90s")
    }
    got := envList("X_LIST", nil)
    if len(got) != 2 || got[0] != "a" || got[1] != "b" {
        t.Errorf("envList = %v", got)
    }
}

func TestMailConfigFallsBackWithoutSendGridKey(t *testing.T) {
    t.Setenv("MAIL_PROVIDER", "sendgrid")
    t.Setenv("SENDGRID_API_KEY", "")
    if got := LoadMailConfig().Provider; got != "log" {
        t.Fatalf("provider = %q, want log", got)
    }
}

func TestYandexConfigured(t *testing.T) {
    if (YandexConfig{ClientID: "id"}).Configured() {
        t.Error("client id alone must not count as configured")
    }
    if !(YandexConfig{ClientID: "id", ClientSecret: "s"}).Configured() {
        t.Error("id and secret should be configured")
    }
}
