package config // package config loads application configuration from environment variables

import (
    "log"     // log reports configuration errors and halts execution
    "os"      // os provides access to environment variables
    "time"
)

// Config holds the core runtime configuration.  Each field corresponds to an
// environment variable.  Feature specific settings (mail, geocoder, queue...)
// live in their own structs and loaders in this package.
type Config struct {
    Env            string // application environment (dev, test, prod)
    Port           string // HTTP port to listen on
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time-to-live in minutes
    RefreshTTLDays int    // refresh token time-to-live in days
    BcryptCost     int    // bcrypt cost for password hashing
    FrontendURL    string // base URL used in links sent by email
    AdminEmail     string // default admin created by /api/auth/init-admin
    AdminPassword  string
    CronInterval   time.Duration // in-process scheduler period, 0 disables it
    UploadDir      string        // local directory for uploaded images
    TrustedProxies []string      // CIDRs allowed to set X-Forwarded-For, empty means none
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        DBUser:         must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"), // empty allowed
        DBHost:         must("DB_HOST"),
        DBPort:         must("DB_PORT"),
        DBName:         must("DB_NAME"),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 60*24),
        RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 30),
        BcryptCost:     envInt("BCRYPT_COST", 10),
        FrontendURL:    envStr("FRONTEND_URL", "http://localhost:3000"),
        AdminEmail:     envStr("ADMIN_EMAIL", "admin@example.com"),
        AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
        CronInterval:   envDur("CRON_INTERVAL", 0),
        UploadDir:      envStr("UPLOAD_DIR", "uploads"),
        TrustedProxies: envList("TRUSTED_PROXIES", nil),
    }
}

// IsProd reports whether the service runs with production settings.
func (c Config) IsProd() bool { return c.Env == "prod" || c.Env == "production" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}
