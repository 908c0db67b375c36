package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// RateLimitConfig selects the backing store for the per-route fixed window
// limiter.  Policies themselves ("3-H", "5-M") are declared next to the routes.
type RateLimitConfig struct {
    Enabled bool
    Backend string // memory | redis
    Prefix  string
    Debug   bool
}

func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled: envBool("RATE_LIMIT_ENABLED", true),
        Backend: strings.ToLower(envStr("RATE_LIMIT_BACKEND", "memory")),
        Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:   envBool("RATE_LIMIT_DEBUG", false),
    }
    if cfg.Backend != "redis" { cfg.Backend = "memory" }
    return cfg
}

func envStr(k, d string) string { if v := os.Getenv(k); v != "" { return v }; return d }
func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" { return d }
    switch v {
    case "1","true","TRUE","True","yes","YES","on","ON": return true
    case "0","false","FALSE","False","no","NO","off","OFF": return false
    }
    return d
}
func envInt(k string, d int) int {
    v := os.Getenv(k); if v == "" { return d }
    if n, err := strconv.Atoi(v); err == nil { return n }
    return d
}
func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k); if v == "" { return d }
    if dur, err := time.ParseDuration(v); err == nil { return dur }
    return d
}
func envList(k string, d []string) []string {
    v := os.Getenv(k)
    if v == "" { return d }
    var out []string
    for _, p := range strings.Split(v, ",") {
        if p = strings.TrimSpace(p); p != "" { out = append(out, p) }
    }
    return out
}
