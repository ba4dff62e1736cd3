package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every recognized option. Values come from the environment;
// main loads a .env file first so local runs behave like deployments.
type Config struct {
	Port   string `env:"PORT" envDefault:"8080"`
	AppURL string `env:"APP_URL" envDefault:"http://localhost:8080"`

	MongoURI      string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"avena_triage"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	TokensDir     string `env:"TOKENS_DIR" envDefault:"./data/tokens"`

	ShopifyClientID     string `env:"SHOPIFY_CLIENT_ID"`
	ShopifyClientSecret string `env:"SHOPIFY_CLIENT_SECRET"`
	ShopifyScopes       string `env:"SHOPIFY_SCOPES" envDefault:"read_orders,read_customers"`

	// Auto-send gates for the decision engine.
	AutoSendTracking      bool `env:"AUTO_SEND_TRACKING" envDefault:"true"`
	AutoSendReturnConfirm bool `env:"AUTO_SEND_RETURN_CONFIRM" envDefault:"false"`

	// Resolver bounds.
	StoreLookupTimeout    time.Duration `env:"STORE_LOOKUP_TIMEOUT" envDefault:"10s"`
	ResolutionTimeout     time.Duration `env:"RESOLUTION_TIMEOUT" envDefault:"30s"`
	MaxConcurrentLookups  int           `env:"MAX_CONCURRENT_LOOKUPS" envDefault:"4"`
	RateLimitRetryBackoff time.Duration `env:"RATE_LIMIT_RETRY_BACKOFF" envDefault:"2s"`

	// Collaborator endpoints. Empty disables the collaborator.
	MailSenderURL   string `env:"MAIL_SENDER_URL"`
	ReplyDrafterURL string `env:"REPLY_DRAFTER_URL"`

	// Per-store Parcelpanel API keys as JSON: {"store-id": "key", ...}
	ParcelpanelKeys string `env:"PARCELPANEL_KEYS" envDefault:"{}"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return cfg, nil
}

// RequiredScopes returns the configured scopes as a slice.
func (c *Config) RequiredScopes() []string {
	parts := strings.Split(c.ShopifyScopes, ",")
	scopes := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

// ParcelpanelKeyMap decodes the per-store tracking API keys. A malformed
// value disables tracking enrichment rather than failing startup.
func (c *Config) ParcelpanelKeyMap() map[string]string {
	keys := map[string]string{}
	if err := json.Unmarshal([]byte(c.ParcelpanelKeys), &keys); err != nil {
		return map[string]string{}
	}
	return keys
}
