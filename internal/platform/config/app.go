package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/campus-events/eventhub-api/internal/domain"
)

const (
	AuthModeLocal = "local"
	AuthModeJWKS  = "jwks"
	AuthModeDev   = "dev"

	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
)

// AppConfig is the process configuration for cmd/api.
type AppConfig struct {
	Port           string
	AuthMode       string
	StorageBackend string

	DatabaseURL         string
	DatabaseAutoMigrate bool
	MongoURI            string
	MongoDatabase       string

	// RolePrecedence decides between the token role claim and the profile role.
	RolePrecedence domain.RolePrecedence
	// AllowAdminSignup lets the public signup endpoint request the admin role.
	AllowAdminSignup bool

	DevSubject string

	// PhoneRegion is the default region for profile phone numbers written without a
	// country code.
	PhoneRegion string

	Identity IdentityConfig
	Log      LogConfig
}

// IdentityConfig configures the local identity provider and the tokens it issues.
type IdentityConfig struct {
	Issuer            string
	Audience          string
	SigningKey        []byte
	TokenTTL          time.Duration
	BcryptCost        int
	MinPasswordLength int
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env") into the process
// environment without overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func LoadAppConfigFromEnv() (AppConfig, error) {
	cfg := AppConfig{
		Port:           getenv("PORT", "8080"),
		AuthMode:       strings.ToLower(getenv("AUTH_MODE", AuthModeLocal)),
		StorageBackend: strings.ToLower(getenv("STORAGE_BACKEND", StorageMemory)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MongoURI:       os.Getenv("MONGO_URI"),
		MongoDatabase:  getenv("MONGO_DATABASE", "eventhub"),
		RolePrecedence: domain.RolePrecedence(getenv("ROLE_PRECEDENCE", string(domain.DefaultRolePrecedence))),
		DevSubject:     os.Getenv("DEV_SUBJECT"),
		PhoneRegion:    strings.ToUpper(getenv("PHONE_DEFAULT_REGION", "US")),
		Identity: IdentityConfig{
			Issuer:            getenv("IDENTITY_ISSUER", "eventhub-api"),
			Audience:          getenv("IDENTITY_AUDIENCE", "eventhub"),
			SigningKey:        []byte(os.Getenv("IDENTITY_SIGNING_KEY")),
			TokenTTL:          time.Hour,
			BcryptCost:        12,
			MinPasswordLength: 6,
		},
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
	}

	switch cfg.AuthMode {
	case AuthModeLocal, AuthModeJWKS, AuthModeDev:
	default:
		return AppConfig{}, fmt.Errorf("AUTH_MODE must be one of local|jwks|dev, got %q", cfg.AuthMode)
	}
	switch cfg.StorageBackend {
	case StorageMemory:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return AppConfig{}, errors.New("STORAGE_BACKEND=postgres requires DATABASE_URL")
		}
	case StorageMongo:
		if cfg.MongoURI == "" {
			return AppConfig{}, errors.New("STORAGE_BACKEND=mongo requires MONGO_URI")
		}
	default:
		return AppConfig{}, fmt.Errorf("STORAGE_BACKEND must be one of memory|postgres|mongo, got %q", cfg.StorageBackend)
	}
	if !cfg.RolePrecedence.Valid() {
		return AppConfig{}, fmt.Errorf("ROLE_PRECEDENCE must be %q or %q", domain.ClaimsFirst, domain.ProfileFirst)
	}

	var err error
	if cfg.DatabaseAutoMigrate, err = getenvBool("DATABASE_AUTO_MIGRATE", false); err != nil {
		return AppConfig{}, err
	}
	if cfg.AllowAdminSignup, err = getenvBool("ALLOW_ADMIN_SIGNUP", false); err != nil {
		return AppConfig{}, err
	}
	if v := os.Getenv("IDENTITY_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return AppConfig{}, fmt.Errorf("IDENTITY_TOKEN_TTL must be a positive duration (e.g. 1h)")
		}
		cfg.Identity.TokenTTL = d
	}
	if v := os.Getenv("IDENTITY_BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return AppConfig{}, fmt.Errorf("IDENTITY_BCRYPT_COST must be an integer: %w", err)
		}
		cfg.Identity.BcryptCost = n
	}

	switch {
	case len(cfg.Identity.SigningKey) >= 32:
	case len(cfg.Identity.SigningKey) == 0 && cfg.AuthMode != AuthModeLocal:
		// Local accounts do not authenticate requests in these modes; an ephemeral key
		// is enough.
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return AppConfig{}, err
		}
		cfg.Identity.SigningKey = key
	default:
		return AppConfig{}, errors.New("IDENTITY_SIGNING_KEY must be at least 32 bytes")
	}

	return cfg, nil
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvBool(k string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", k, err)
	}
	return b, nil
}
