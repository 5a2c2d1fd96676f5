// Package config loads the control plane's environment-driven configuration
// into a single struct and clamps the numeric knobs to their allowed bounds.
package config

import (
	"fmt"
	"strings"

	"github.com/Braden-sui/Vibecodr-sub002/pkg/util"
)

// Config is the top level configuration struct for the control plane.
type Config struct {
	EnvName  string `env:"ENV_NAME"`
	LogLevel string `env:"LOG_LEVEL"`
	Version  string `env:"VERSION"`

	ServerAddress string `env:"SERVER_ADDRESS"`

	// OpenTelemetry
	OtelServiceName         string `env:"OTEL_RESOURCE_SERVICE_NAME"`
	OtelLibraryName         string `env:"OTEL_LIBRARY_NAME"`
	OtelServiceVersion      string `env:"OTEL_RESOURCE_SERVICE_VERSION"`
	OtelDeploymentEnv       string `env:"OTEL_RESOURCE_DEPLOYMENT_ENVIRONMENT"`
	OtelColExporterEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	EnableTelemetry         bool   `env:"ENABLE_TELEMETRY"`

	// Auth Verifier
	ClerkJWTIssuer   string `env:"CLERK_JWT_ISSUER"`
	ClerkJWTAudience string `env:"CLERK_JWT_AUDIENCE"`
	ClerkJWKSURI     string `env:"CLERK_JWKS_URI"`

	// Platform connections
	PostgresConnectionString string `env:"DB_CONNECTION_STRING"`
	RedisConnectionString    string `env:"REDIS_CONNECTION_STRING"`
	MongoConnectionString    string `env:"MONGO_CONNECTION_STRING"`
	MongoDatabaseName        string `env:"MONGO_DATABASE_NAME"`
	RabbitMQConnectionString string `env:"RABBITMQ_CONNECTION_STRING"`

	BlobRegion          string `env:"BLOB_REGION"`
	BlobBucket          string `env:"BLOB_BUCKET"`
	BlobEndpoint        string `env:"BLOB_ENDPOINT"`
	BlobAccessKeyID     string `env:"BLOB_ACCESS_KEY_ID"`
	BlobSecretAccessKey string `env:"BLOB_SECRET_ACCESS_KEY"`
	BlobUsePathStyle    bool   `env:"BLOB_USE_PATH_STYLE"`

	// Capsule platform behavior
	AllowlistHostsRaw          string `env:"ALLOWLIST_HOSTS"`
	RuntimeArtifactsEnabled    bool   `env:"RUNTIME_ARTIFACTS_ENABLED"`
	CapsuleBundleNetworkMode   string `env:"CAPSULE_BUNDLE_NETWORK_MODE"`
	NetProxyEnabled            bool   `env:"NET_PROXY_ENABLED"`
	NetProxyFreeEnabled        bool   `env:"NET_PROXY_FREE_ENABLED"`
	RuntimeMaxConcurrentActive int    `env:"RUNTIME_MAX_CONCURRENT_ACTIVE"`
	RuntimeSessionMaxMs        int    `env:"RUNTIME_SESSION_MAX_MS"`
	CORSAllowedOrigins         string `env:"CORS_ALLOWED_ORIGINS"`
}

// AllowlistHosts parses the JSON-array-shaped ALLOWLIST_HOSTS env var into a
// slice of host patterns. The value is not parsed as JSON: surrounding
// brackets and quotes are trimmed and the rest is split on commas, so
// malformed input is never rejected and each non-empty piece becomes a
// pattern. An unset value yields an empty allowlist, which the Egress Proxy
// treats as "deny all".
func (c *Config) AllowlistHosts() []string {
	raw := strings.TrimSpace(c.AllowlistHostsRaw)
	if raw == "" {
		return nil
	}

	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")

	var hosts []string

	for _, part := range strings.Split(raw, ",") {
		part = strings.Trim(strings.TrimSpace(part), `"`)
		if part != "" {
			hosts = append(hosts, part)
		}
	}

	return hosts
}

// ClerkAudiences splits the comma-list CLERK_JWT_AUDIENCE env var.
func (c *Config) ClerkAudiences() []string {
	var auds []string

	for _, a := range strings.Split(c.ClerkJWTAudience, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			auds = append(auds, a)
		}
	}

	return auds
}

// New loads Config from environment variables, applies defaults, and
// clamps the numeric knobs.
func New() (*Config, error) {
	cfg := &Config{}

	if err := util.SetConfigFromEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment variables: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.EnvName) == "" {
		c.EnvName = "local"
	}

	if strings.TrimSpace(c.ServerAddress) == "" {
		c.ServerAddress = ":3000"
	}

	if strings.TrimSpace(c.CapsuleBundleNetworkMode) == "" {
		c.CapsuleBundleNetworkMode = "strict"
	}

	if c.RuntimeMaxConcurrentActive == 0 {
		c.RuntimeMaxConcurrentActive = 2
	}

	if c.RuntimeSessionMaxMs == 0 {
		c.RuntimeSessionMaxMs = 30000
	}

	if strings.TrimSpace(c.ClerkJWKSURI) == "" && strings.TrimSpace(c.ClerkJWTIssuer) != "" {
		c.ClerkJWKSURI = strings.TrimRight(c.ClerkJWTIssuer, "/") + "/.well-known/jwks.json"
	}
}

// Validate clamps RUNTIME_MAX_CONCURRENT_ACTIVE to [1,10] and
// RUNTIME_SESSION_MAX_MS to [1000,300000], and rejects an unrecognized
// CAPSULE_BUNDLE_NETWORK_MODE.
func (c *Config) Validate() error {
	if c.RuntimeMaxConcurrentActive < 1 {
		c.RuntimeMaxConcurrentActive = 1
	} else if c.RuntimeMaxConcurrentActive > 10 {
		c.RuntimeMaxConcurrentActive = 10
	}

	if c.RuntimeSessionMaxMs < 1000 {
		c.RuntimeSessionMaxMs = 1000
	} else if c.RuntimeSessionMaxMs > 300000 {
		c.RuntimeSessionMaxMs = 300000
	}

	switch c.CapsuleBundleNetworkMode {
	case "strict", "allow-https":
	default:
		return fmt.Errorf("config: CAPSULE_BUNDLE_NETWORK_MODE must be %q or %q, got %q", "strict", "allow-https", c.CapsuleBundleNetworkMode)
	}

	return nil
}
