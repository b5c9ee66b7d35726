// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// EnvironmentVariable names the variable [Load] reads the config path
// from.
const EnvironmentVariable = "GATEPASS_CONFIG"

// Config is the master configuration for Gatepass binaries. Each binary
// reads the sections it needs and checks them with the matching
// Require method.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Keys locates the signing and verification keys.
	Keys KeysConfig `yaml:"keys"`

	// TimestampValidity is the replay window in milliseconds.
	TimestampValidity int64 `yaml:"timestamp_validity"`

	// Whitelist maps a service scope to its bypass path patterns. The
	// "common" scope applies to every service.
	Whitelist map[string][]string `yaml:"whitelist"`

	// Authority configures remote authority lookups and caching.
	Authority AuthorityConfig `yaml:"authority"`

	// PermissionsFile is the JSONC operation registry.
	PermissionsFile string `yaml:"permissions_file"`

	// Gateway configures the edge gateway.
	Gateway GatewayConfig `yaml:"gateway"`

	// Service configures a guarded service.
	Service ServiceConfig `yaml:"service"`

	// Directory configures the authority directory server.
	Directory DirectoryConfig `yaml:"directory"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
// Unset fields keep the base value.
type ConfigOverrides struct {
	Keys              *KeysConfig         `yaml:"keys,omitempty"`
	TimestampValidity *int64              `yaml:"timestamp_validity,omitempty"`
	Whitelist         map[string][]string `yaml:"whitelist,omitempty"`
	Authority         *AuthorityConfig    `yaml:"authority,omitempty"`
	PermissionsFile   *string             `yaml:"permissions_file,omitempty"`
	Gateway           *GatewayOverrides   `yaml:"gateway,omitempty"`
	Service           *ServiceConfig      `yaml:"service,omitempty"`
}

// KeysConfig locates key material.
type KeysConfig struct {
	// Algorithm is "ed25519" or "rsa-pkcs1v15-sha256".
	// Default: ed25519
	Algorithm string `yaml:"algorithm"`

	// PrivateKeyFile is the gateway's signing key.
	PrivateKeyFile string `yaml:"private_key_file"`

	// PrivateKeyIdentityFile is the age identity that opens a sealed
	// private key file.
	PrivateKeyIdentityFile string `yaml:"private_key_identity_file"`

	// PublicKeyFile is the services' verification key.
	PublicKeyFile string `yaml:"public_key_file"`
}

// AuthorityConfig configures where authorities come from. Exactly one
// of Socket and URL is used by a service.
type AuthorityConfig struct {
	// Socket is the authority directory's Unix socket.
	Socket string `yaml:"socket"`

	// URL is the authority directory's HTTP base URL.
	URL string `yaml:"url"`

	// TTL is how long a fetched authority stays fresh.
	// Default: 10m
	TTL time.Duration `yaml:"ttl"`

	// Timeout bounds one remote lookup.
	// Default: 3s
	Timeout time.Duration `yaml:"timeout"`
}

// RouteConfig is one gateway route.
type RouteConfig struct {
	Prefix   string `yaml:"prefix"`
	Scope    string `yaml:"scope"`
	Upstream string `yaml:"upstream"`
}

// IntrospectionConfig configures token introspection at the issuer.
type IntrospectionConfig struct {
	Endpoint string `yaml:"endpoint"`
	ClientID string `yaml:"client_id"`

	// ClientSecretFile holds the client secret. Secrets never appear
	// in the config file itself.
	ClientSecretFile string `yaml:"client_secret_file"`

	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`
}

// GatewayConfig configures the edge gateway.
type GatewayConfig struct {
	// Listen is the public HTTP address.
	// Default: :8080
	Listen string `yaml:"listen"`

	// MetricsListen serves /metrics when set.
	MetricsListen string `yaml:"metrics_listen"`

	Routes        []RouteConfig       `yaml:"routes"`
	Introspection IntrospectionConfig `yaml:"introspection"`

	// ForwardAuthorization keeps the bearer on upstream requests.
	ForwardAuthorization bool `yaml:"forward_authorization"`
}

// GatewayOverrides mirrors GatewayConfig for environment overrides.
// ForwardAuthorization is a pointer so an override that leaves it out
// keeps the base value.
type GatewayOverrides struct {
	Listen               string              `yaml:"listen"`
	MetricsListen        string              `yaml:"metrics_listen"`
	Routes               []RouteConfig       `yaml:"routes"`
	Introspection        IntrospectionConfig `yaml:"introspection"`
	ForwardAuthorization *bool               `yaml:"forward_authorization,omitempty"`
}

// ServiceConfig configures a service behind the gateway.
type ServiceConfig struct {
	// Scope is the service's whitelist scope.
	Scope string `yaml:"scope"`

	// Listen is the service's HTTP address.
	// Default: :8081
	Listen string `yaml:"listen"`

	// MetricsListen serves /metrics when set.
	MetricsListen string `yaml:"metrics_listen"`
}

// DirectoryConfig configures the authority directory server.
type DirectoryConfig struct {
	// File is the YAML user directory.
	File string `yaml:"file"`

	// Socket is where the CBOR lookup service listens.
	Socket string `yaml:"socket"`

	// Listen serves the HTTP lookup API when set.
	Listen string `yaml:"listen"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist to give every field a sensible value, not as a fallback:
// the config file is required.
func Default() *Config {
	return &Config{
		Environment:       Development,
		Keys:              KeysConfig{Algorithm: "ed25519"},
		TimestampValidity: 300000,
		Authority: AuthorityConfig{
			TTL:     10 * time.Minute,
			Timeout: 3 * time.Second,
		},
		Gateway: GatewayConfig{
			Listen:        ":8080",
			Introspection: IntrospectionConfig{Timeout: 5 * time.Second},
		},
		Service: ServiceConfig{Listen: ":8081"},
	}
}

// Load loads configuration from the GATEPASS_CONFIG environment variable.
//
// There are no fallbacks: if GATEPASS_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your gatepass.yaml config file, or use --config flag", EnvironmentVariable)
	}

	return LoadFile(configPath)
}

// LoadPath loads from path when a --config flag supplied one, and from
// GATEPASS_CONFIG otherwise.
func LoadPath(path string) (*Config, error) {
	if path == "" {
		return Load()
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values; the only expansion performed is
// ${HOME} and similar variables in path fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile decodes one configuration file over the current values.
// Unknown keys are errors.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Keys != nil {
		overrideString(&c.Keys.Algorithm, overrides.Keys.Algorithm)
		overrideString(&c.Keys.PrivateKeyFile, overrides.Keys.PrivateKeyFile)
		overrideString(&c.Keys.PrivateKeyIdentityFile, overrides.Keys.PrivateKeyIdentityFile)
		overrideString(&c.Keys.PublicKeyFile, overrides.Keys.PublicKeyFile)
	}

	if overrides.TimestampValidity != nil {
		c.TimestampValidity = *overrides.TimestampValidity
	}

	// Whitelist overrides replace per scope, not per pattern.
	for scope, patterns := range overrides.Whitelist {
		if c.Whitelist == nil {
			c.Whitelist = make(map[string][]string)
		}
		c.Whitelist[scope] = patterns
	}

	if overrides.Authority != nil {
		overrideString(&c.Authority.Socket, overrides.Authority.Socket)
		overrideString(&c.Authority.URL, overrides.Authority.URL)
		if overrides.Authority.TTL != 0 {
			c.Authority.TTL = overrides.Authority.TTL
		}
		if overrides.Authority.Timeout != 0 {
			c.Authority.Timeout = overrides.Authority.Timeout
		}
	}

	if overrides.PermissionsFile != nil {
		c.PermissionsFile = *overrides.PermissionsFile
	}

	if overrides.Gateway != nil {
		overrideString(&c.Gateway.Listen, overrides.Gateway.Listen)
		overrideString(&c.Gateway.MetricsListen, overrides.Gateway.MetricsListen)
		if len(overrides.Gateway.Routes) > 0 {
			c.Gateway.Routes = overrides.Gateway.Routes
		}
		overrideString(&c.Gateway.Introspection.Endpoint, overrides.Gateway.Introspection.Endpoint)
		overrideString(&c.Gateway.Introspection.ClientID, overrides.Gateway.Introspection.ClientID)
		overrideString(&c.Gateway.Introspection.ClientSecretFile, overrides.Gateway.Introspection.ClientSecretFile)
		if overrides.Gateway.Introspection.Timeout != 0 {
			c.Gateway.Introspection.Timeout = overrides.Gateway.Introspection.Timeout
		}
		if overrides.Gateway.ForwardAuthorization != nil {
			c.Gateway.ForwardAuthorization = *overrides.Gateway.ForwardAuthorization
		}
	}

	if overrides.Service != nil {
		overrideString(&c.Service.Scope, overrides.Service.Scope)
		overrideString(&c.Service.Listen, overrides.Service.Listen)
		overrideString(&c.Service.MetricsListen, overrides.Service.MetricsListen)
	}
}

func overrideString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	for _, field := range []*string{
		&c.Keys.PrivateKeyFile,
		&c.Keys.PrivateKeyIdentityFile,
		&c.Keys.PublicKeyFile,
		&c.Authority.Socket,
		&c.PermissionsFile,
		&c.Gateway.Introspection.ClientSecretFile,
		&c.Directory.File,
		&c.Directory.Socket,
	} {
		*field = expandVars(*field, vars)
	}
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validity returns the replay window as a duration.
func (c *Config) Validity() time.Duration {
	return time.Duration(c.TimestampValidity) * time.Millisecond
}

// Validate checks the settings every binary shares.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	switch c.Keys.Algorithm {
	case "ed25519", "rsa-pkcs1v15-sha256":
	default:
		errs = append(errs, fmt.Errorf("keys.algorithm must be ed25519 or rsa-pkcs1v15-sha256, got %q", c.Keys.Algorithm))
	}

	if c.TimestampValidity <= 0 {
		errs = append(errs, fmt.Errorf("timestamp_validity must be a positive number of milliseconds"))
	}

	for scope, patterns := range c.Whitelist {
		if scope == "" {
			errs = append(errs, fmt.Errorf("whitelist has an empty scope name"))
		}
		for _, pattern := range patterns {
			if !strings.HasPrefix(pattern, "/") {
				errs = append(errs, fmt.Errorf("whitelist.%s: pattern %q must start with /", scope, pattern))
			}
		}
	}

	if c.Authority.TTL <= 0 {
		errs = append(errs, fmt.Errorf("authority.ttl must be positive"))
	}
	if c.Authority.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("authority.timeout must be positive"))
	}

	return errors.Join(errs...)
}

// RequireGateway checks the settings the gateway needs on top of
// [Config.Validate].
func (c *Config) RequireGateway() error {
	var errs []error
	if err := c.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Keys.PrivateKeyFile == "" {
		errs = append(errs, fmt.Errorf("keys.private_key_file is required"))
	}
	if c.Gateway.Listen == "" {
		errs = append(errs, fmt.Errorf("gateway.listen is required"))
	}
	if len(c.Gateway.Routes) == 0 {
		errs = append(errs, fmt.Errorf("gateway.routes must name at least one route"))
	}
	for index, route := range c.Gateway.Routes {
		if route.Prefix == "" || route.Scope == "" || route.Upstream == "" {
			errs = append(errs, fmt.Errorf("gateway.routes[%d]: prefix, scope, and upstream are required", index))
		}
	}
	if err := requireHTTPURL("gateway.introspection.endpoint", c.Gateway.Introspection.Endpoint); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// RequireService checks the settings a guarded service needs on top of
// [Config.Validate].
func (c *Config) RequireService() error {
	var errs []error
	if err := c.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Keys.PublicKeyFile == "" {
		errs = append(errs, fmt.Errorf("keys.public_key_file is required"))
	}
	if c.PermissionsFile == "" {
		errs = append(errs, fmt.Errorf("permissions_file is required"))
	}
	if c.Service.Scope == "" {
		errs = append(errs, fmt.Errorf("service.scope is required"))
	}
	if c.Service.Listen == "" {
		errs = append(errs, fmt.Errorf("service.listen is required"))
	}

	switch {
	case c.Authority.Socket == "" && c.Authority.URL == "":
		errs = append(errs, fmt.Errorf("one of authority.socket and authority.url is required"))
	case c.Authority.Socket != "" && c.Authority.URL != "":
		errs = append(errs, fmt.Errorf("authority.socket and authority.url are mutually exclusive"))
	case c.Authority.URL != "":
		if err := requireHTTPURL("authority.url", c.Authority.URL); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// RequireDirectory checks the settings the authority directory server
// needs.
func (c *Config) RequireDirectory() error {
	var errs []error
	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Directory.File == "" {
		errs = append(errs, fmt.Errorf("directory.file is required"))
	}
	if c.Directory.Socket == "" && c.Directory.Listen == "" {
		errs = append(errs, fmt.Errorf("one of directory.socket and directory.listen is required"))
	}
	return errors.Join(errs...)
}

func requireHTTPURL(key, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", key)
	}
	parsed, err := url.Parse(value)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, value)
	}
	return nil
}
