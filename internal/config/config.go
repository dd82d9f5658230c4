// Package config handles loading and validation of storefront configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// Config holds all service configuration.
// Environment determines whether secrets load from env vars (development) or
// Secret Manager (production).
type Config struct {
	// Server settings for the local facade
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string
	StoreID    string

	// Store-specific configuration (loaded from secrets)
	Store StoreConfig
}

// StoreConfig contains per-store settings.
// In production this is loaded from Secret Manager as JSON.
// In development, from individual env vars or CONFIG_FILE.
type StoreConfig struct {
	// APIBaseURL is the commerce backend root, e.g. https://api.shop.example.
	// The /api/v1 prefix is appended by the gateway.
	APIBaseURL string `json:"api_base_url"`

	// PaymentKeyID is the client identifier for the hosted payment widget.
	// May be absent: its absence is a detectable checkout-time configuration
	// error, not a startup failure, so COD-only deployments still boot.
	PaymentKeyID string `json:"payment_key_id,omitempty"`

	// Currency for payment orders. Defaults to INR.
	Currency string `json:"currency,omitempty"`

	// MinAPIVersion is the lowest backend API version this client accepts,
	// in semver form ("v1.2.0"). Checked against the backend's
	// X-Api-Version response header.
	MinAPIVersion string `json:"min_api_version,omitempty"`

	// CheckoutURL is the payment provider's hosted checkout page, handed to
	// the user for the online payment path.
	CheckoutURL string `json:"checkout_url,omitempty"`

	StoreName string `json:"store_name,omitempty"`
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
func Load(ctx context.Context) (*Config, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:        envOrDefault("PORT", "8080"),
		Environment: envOrDefault("ENVIRONMENT", "development"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		GCPProject:  os.Getenv("GCP_PROJECT"),
		StoreID:     os.Getenv("STORE_ID"),
	}

	if cfg.StoreID == "" {
		return nil, fmt.Errorf("STORE_ID environment variable required")
	}

	var err error
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		err = cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading store config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig struct {
		Port        string      `json:"port"`
		Environment string      `json:"environment"`
		LogLevel    string      `json:"log_level"`
		StoreID     string      `json:"store_id"`
		Store       StoreConfig `json:"store"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:        withDefault(fileConfig.Port, "8080"),
		Environment: withDefault(fileConfig.Environment, "development"),
		LogLevel:    withDefault(fileConfig.LogLevel, "info"),
		StoreID:     fileConfig.StoreID,
		Store:       fileConfig.Store,
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromSecretManager fetches store config from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{store_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.StoreID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Store); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}

	return nil
}

// loadFromEnv reads store config from individual environment variables.
// Used in development mode for local testing.
func (c *Config) loadFromEnv() error {
	c.Store = StoreConfig{
		APIBaseURL:    os.Getenv("STORE_API_BASE_URL"),
		PaymentKeyID:  os.Getenv("STORE_PAYMENT_KEY_ID"),
		Currency:      os.Getenv("STORE_CURRENCY"),
		MinAPIVersion: os.Getenv("STORE_MIN_API_VERSION"),
		CheckoutURL:   os.Getenv("STORE_CHECKOUT_URL"),
		StoreName:     os.Getenv("STORE_NAME"),
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Store.Currency == "" {
		c.Store.Currency = "INR"
	}
	if c.Store.MinAPIVersion == "" {
		c.Store.MinAPIVersion = "v1.0.0"
	}
	if c.Store.CheckoutURL == "" {
		c.Store.CheckoutURL = "https://checkout.razorpay.com/v1/checkout"
	}
	c.Store.APIBaseURL = strings.TrimSuffix(c.Store.APIBaseURL, "/")
}

// validate checks that all required configuration fields are present.
// PaymentKeyID is deliberately not required here: checkout reports its
// absence as a terminal configuration error when the online path is taken.
func (c *Config) validate() error {
	if c.Store.APIBaseURL == "" {
		return fmt.Errorf("api_base_url is required")
	}
	u, err := url.Parse(c.Store.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api_base_url %q", c.Store.APIBaseURL)
	}
	return nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
