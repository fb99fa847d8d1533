package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	Port     int    `env:"PORT,default=2333"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	FirebaseProjectID       string `env:"FIREBASE_PROJECT_ID,required=true"`
	FirebaseCredentialsJSON string `env:"FIREBASE_CREDENTIALS_JSON"`
	FirebaseCredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`
	FirestoreEmulatorHost   string `env:"FIRESTORE_EMULATOR_HOST"`
	Collection              string `env:"GUESTBOOK_COLLECTION,default=guestbook"`
	ListingLimit            int    `env:"LISTING_LIMIT,default=30"`

	ProfanityDenylist    string `env:"PROFANITY_DENYLIST"`
	ProfanityRequired    bool   `env:"PROFANITY_REQUIRED,default=false"`
	ProfanityReplacement string `env:"PROFANITY_REPLACEMENT,default=*"`

	ClerkSecretKey string `env:"CLERK_SECRET_KEY"`
	ModeratorIDs   string `env:"MODERATOR_IDS"`

	MetricsUser string `env:"METRICS_USER"`
	MetricsPass string `env:"METRICS_PASS"`
	PprofSecret string `env:"PPROF_SECRET"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS,default=5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST,default=30"`

	// Rules probe: the anonymous REST client.
	FirebaseWebAPIKey     string `env:"FIREBASE_WEB_API_KEY"`
	FirestoreRESTEndpoint string `env:"FIRESTORE_REST_ENDPOINT"`

	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT,default=5s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.FirebaseProjectID) == "" {
		errs = append(errs, errors.New("FIREBASE_PROJECT_ID is required"))
	}
	if c.ListingLimit <= 0 {
		errs = append(errs, fmt.Errorf("LISTING_LIMIT must be positive, got %d", c.ListingLimit))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	if _, err := c.Replacement(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Moderators splits MODERATOR_IDS on commas.
func (c Config) Moderators() []string {
	var ids []string
	for _, id := range strings.Split(c.ModeratorIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (c Config) Replacement() (rune, error) {
	r := []rune(c.ProfanityReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf("PROFANITY_REPLACEMENT must be a single character, got %q", c.ProfanityReplacement)
	}
	return r[0], nil
}
