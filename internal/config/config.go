package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultReplyTemplate is used when REPLY_CAPTION_TEMPLATE is unset.
	// The {url} placeholder is substituted with the product URL.
	DefaultReplyTemplate = "We turned this meme into merch. Buy now: {url}"

	defaultCallbackPath    = "/api/product-callback"
	defaultPort            = "8080"
	defaultOutboundTimeout = 30 * time.Second
	defaultDedupTTL        = 24 * time.Hour
)

// Config holds all runtime configuration, read once at startup.
type Config struct {
	// AccountHandle is the monitored account, without the leading @.
	AccountHandle string

	// BearerToken authorizes read operations (mentions, tweet lookup).
	BearerToken string

	// OAuth 1.0a user-context credentials for posting and media upload.
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string

	// ReplyTemplate for the completion reply; contains a {url} placeholder.
	ReplyTemplate string

	ProductServiceURL    string
	ProductServiceAPIKey string

	// CallbackPath is resolved against the inbound request origin to build
	// the absolute callback URL handed to the product service.
	CallbackPath string

	Port            string
	LogLevel        string
	OutboundTimeout time.Duration
	DedupTTL        time.Duration
}

// Load reads configuration from the environment, loading a .env file first
// if one is present. It fails on the first missing required variable so the
// process never starts half-configured.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ReplyTemplate:        getEnv("REPLY_CAPTION_TEMPLATE", DefaultReplyTemplate),
		ProductServiceAPIKey: os.Getenv("PRODUCT_SERVICE_API_KEY"),
		CallbackPath:         getEnv("PRODUCT_CALLBACK_PATH", defaultCallbackPath),
		Port:                 getEnv("PORT", defaultPort),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		OutboundTimeout:      getDuration("OUTBOUND_TIMEOUT", defaultOutboundTimeout),
		DedupTTL:             getDuration("CALLBACK_DEDUP_TTL", defaultDedupTTL),
	}

	var err error
	required := []struct {
		key string
		dst *string
	}{
		{"X_ACCOUNT_HANDLE", &cfg.AccountHandle},
		{"X_TWITTER_BEARER_TOKEN", &cfg.BearerToken},
		{"X_TWITTER_API_KEY", &cfg.APIKey},
		{"X_TWITTER_API_SECRET", &cfg.APISecret},
		{"X_TWITTER_ACCESS_TOKEN", &cfg.AccessToken},
		{"X_TWITTER_ACCESS_TOKEN_SECRET", &cfg.AccessSecret},
		{"PRODUCT_SERVICE_URL", &cfg.ProductServiceURL},
	}
	for _, r := range required {
		if *r.dst, err = requireEnv(r.key); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func requireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("missing required environment variable: %s", key)
	}
	return v, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
