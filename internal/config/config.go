// Package config reads PLAN_* environment variables, optionally from a .env file.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"trainingplan/internal/domain/session"
)

// Store backends
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Defaults
const (
	DefaultAddr           = ":3000"
	DefaultBodyLimitBytes = 10 << 20
	DefaultAdminUser      = "admin"
	devAdminPassword      = "training"
)

// Config is the process configuration.
type Config struct {
	Addr       string
	Env        string
	DataDir    string
	StaticDir  string
	Store      string
	SQLitePath string
	RedisURL   string

	CSRFKey           []byte
	AdminUser         string
	AdminPasswordHash string
	CORSOrigin        string
	BodyLimitBytes    int64
	EnforceRoles      bool

	APIURL         string
	Debounce       time.Duration
	RequestTimeout time.Duration
	SlowRequest    time.Duration
}

// LoadDotEnv loads the given files (default ".env") into the environment.
// Missing files are skipped; variables already set are never overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
		slog.Info("dotenv_loaded", "path", p)
	}
	return nil
}

// Load reads the configuration from the environment.
// POST: Returns an error for malformed values or for missing secrets in production
func Load() (Config, error) {
	c := Config{
		Addr:       getenv("PLAN_ADDR", DefaultAddr),
		Env:        getenv("PLAN_ENV", "development"),
		DataDir:    getenv("PLAN_DATA_DIR", "data"),
		StaticDir:  getenv("PLAN_STATIC_DIR", "public"),
		Store:      strings.ToLower(getenv("PLAN_STORE", StoreFile)),
		RedisURL:   getenv("PLAN_REDIS_URL", "redis://localhost:6379/0"),
		AdminUser:  getenv("PLAN_ADMIN_USER", DefaultAdminUser),
		CORSOrigin: getenv("PLAN_CORS_ORIGIN", "*"),
		APIURL:     getenv("PLAN_API_URL", "http://localhost:3000"),
	}
	c.SQLitePath = getenv("PLAN_SQLITE_PATH", c.DataDir+"/trainingplan.db")

	var err error
	if c.BodyLimitBytes, err = getenvInt64("PLAN_BODY_LIMIT_BYTES", DefaultBodyLimitBytes); err != nil {
		return Config{}, err
	}
	if c.EnforceRoles, err = getenvBool("PLAN_ENFORCE_ROLES", false); err != nil {
		return Config{}, err
	}
	if c.Debounce, err = getenvMillis("PLAN_DEBOUNCE_MS", 2000); err != nil {
		return Config{}, err
	}
	if c.RequestTimeout, err = getenvMillis("PLAN_REQUEST_TIMEOUT_MS", 10000); err != nil {
		return Config{}, err
	}
	if c.SlowRequest, err = getenvMillis("PLAN_SLOW_REQUEST_MS", 200); err != nil {
		return Config{}, err
	}

	switch c.Store {
	case StoreFile, StoreSQLite, StoreRedis:
	default:
		return Config{}, fmt.Errorf("PLAN_STORE must be one of file, sqlite, redis (got %q)", c.Store)
	}

	if c.CSRFKey, err = loadCSRFKey(c.IsProduction()); err != nil {
		return Config{}, err
	}
	if c.AdminPasswordHash, err = loadAdminHash(c.IsProduction()); err != nil {
		return Config{}, err
	}
	return c, nil
}

// IsProduction reports whether PLAN_ENV is "production".
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Credential returns the configured admin login.
func (c Config) Credential() session.Credential {
	return session.Credential{Username: c.AdminUser, PasswordHash: c.AdminPasswordHash}
}

// loadCSRFKey reads PLAN_CSRF_KEY (hex-encoded, 32 bytes).
// Outside production a random key is generated per startup.
func loadCSRFKey(production bool) ([]byte, error) {
	if keyHex := os.Getenv("PLAN_CSRF_KEY"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, errors.New("PLAN_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key, nil
	}
	if production {
		return nil, errors.New("PLAN_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate CSRF key: %w", err)
	}
	slog.Warn("csrf_key_random", "hint", "set PLAN_CSRF_KEY so login forms survive restarts")
	return key, nil
}

// loadAdminHash prefers PLAN_ADMIN_PASSWORD_HASH, then hashes PLAN_ADMIN_PASSWORD.
// Development falls back to a fixed password; production without either disables admin login.
func loadAdminHash(production bool) (string, error) {
	if h := os.Getenv("PLAN_ADMIN_PASSWORD_HASH"); h != "" {
		return h, nil
	}
	plain := os.Getenv("PLAN_ADMIN_PASSWORD")
	if plain == "" {
		if production {
			slog.Warn("admin_login_disabled", "reason", "PLAN_ADMIN_PASSWORD_HASH not set")
			return "", nil
		}
		plain = devAdminPassword
		slog.Warn("admin_password_default", "hint", "set PLAN_ADMIN_PASSWORD_HASH for real deployments")
	}
	h, err := session.HashPassword(plain)
	if err != nil {
		return "", fmt.Errorf("hash admin password: %w", err)
	}
	return h, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer (got %q)", key, v)
	}
	return n, nil
}

func getenvMillis(key string, fallbackMs int64) (time.Duration, error) {
	ms, err := getenvInt64(key, fallbackMs)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func getenvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean (got %q)", key, v)
	}
	return b, nil
}
