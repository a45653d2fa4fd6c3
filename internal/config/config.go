package config

import (
	"os"
	"strings"
	"time"
)

// Storage backends supported by STORAGE_BACKEND.
const (
	StorageDrive = "drive"
	StorageS3    = "s3"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env string // "development", "production", etc.

	// Server
	ServerAddr string
	BaseURL    string

	// Database
	DatabaseURL string

	// Redis backs sessions, rate limiting and picked sets when set.
	RedisURL string

	// TLS/mTLS
	TLSEnabled  bool
	TLSCertFile string
	TLSKeyFile  string
	TLSCAFile   string // CA for verifying client certs (mTLS)

	// OIDC
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string

	// AdminSub is the only OIDC subject allowed into /admin.
	AdminSub string

	// Session
	SessionSecret string // Used for signing cookies (min 32 chars)

	// CORS
	CORSOrigins string // Comma-separated allowed origins

	// Storage
	StorageBackend string // "drive" or "s3"

	// Google Drive service account
	GoogleServiceAccountEmail string
	GooglePrivateKey          string

	// S3-compatible bucket
	S3Region       string
	S3Bucket       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string

	// Background folder checks; zero disables the job.
	FolderCheckInterval time.Duration

	// Site Branding
	SiteTitle   string // env: SITE_TITLE, default: "Gallery"
	SiteTagline string // env: SITE_TAGLINE
	SiteFooter  string // env: SITE_FOOTER
	SiteLogoURL string // env: SITE_LOGO_URL, default: "" (no logo, text only)
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Env:              getEnv("ENV", "development"),
		ServerAddr:       getEnv("SERVER_ADDR", ":3000"),
		BaseURL:          getEnv("BASE_URL", "http://localhost:3000"),
		DatabaseURL:      getEnv("DATABASE_URL", "postgres://localhost:5432/gallerylinks?sslmode=disable"),
		RedisURL:         getEnv("REDIS_URL", ""),
		TLSEnabled:       getEnv("TLS_ENABLED", "") != "",
		TLSCertFile:      getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:       getEnv("TLS_KEY_FILE", ""),
		TLSCAFile:        getEnv("TLS_CA_FILE", ""),
		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:  getEnv("OIDC_REDIRECT_URL", "http://localhost:3000/auth/callback"),
		AdminSub:         getEnv("ADMIN_SUB", ""),
		SessionSecret:    getEnv("SESSION_SECRET", "change-me-in-production-min-32-chars"),
		CORSOrigins:      getEnv("CORS_ORIGINS", ""),

		StorageBackend:            strings.ToLower(getEnv("STORAGE_BACKEND", StorageDrive)),
		GoogleServiceAccountEmail: getEnv("GOOGLE_SERVICE_ACCOUNT_EMAIL", ""),
		GooglePrivateKey:          strings.ReplaceAll(getEnv("GOOGLE_PRIVATE_KEY", ""), `\n`, "\n"),
		S3Region:                  getEnv("S3_REGION", "us-east-1"),
		S3Bucket:                  getEnv("S3_BUCKET", ""),
		S3BaseEndpoint:            getEnv("S3_BASE_ENDPOINT", ""),
		S3AccessKey:               getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:               getEnv("S3_SECRET_KEY", ""),

		FolderCheckInterval: getDuration("FOLDER_CHECK_INTERVAL", 0),

		SiteTitle:   getEnv("SITE_TITLE", "Gallery"),
		SiteTagline: getEnv("SITE_TAGLINE", "Photo galleries from shared folders"),
		SiteFooter:  getEnv("SITE_FOOTER", "Gallery - photo galleries from shared folders"),
		SiteLogoURL: getEnv("SITE_LOGO_URL", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// IsMTLSEnabled returns true if mTLS is configured with a CA file.
func (c *Config) IsMTLSEnabled() bool {
	return c.TLSEnabled && c.TLSCAFile != ""
}

// IsAdminConfigured reports whether the admin dashboard can be reached at all.
func (c *Config) IsAdminConfigured() bool {
	return c.OIDCIssuer != "" && c.AdminSub != ""
}

// ServiceAccountEmail is shown on the dashboard so admins know whom to share
// folders with.
func (c *Config) ServiceAccountEmail() string {
	if c.StorageBackend == StorageDrive {
		return c.GoogleServiceAccountEmail
	}
	return ""
}
