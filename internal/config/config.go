// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

// Package config loads process configuration from file, environment, and
// flags. The token secret is resolved exactly once here and validated
// before anything else starts; a missing or wrong-length secret is a
// startup-fatal error, never a later panic.
package config

import (
	"encoding/base64"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/accountd/accountd/internal/auth"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// ACCOUNTD_DATABASE_URL -> database.url.
const EnvPrefix = "ACCOUNTD_"

// Config is the full process configuration.
type Config struct {
	Service struct {
		Name    string
		Version string
	}

	Log struct {
		Format string // "json" or "text"
		Level  string
	}

	HTTP struct {
		Addr         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
		IdleTimeout  time.Duration
	}

	Observability struct {
		Addr string
	}

	Database struct {
		URL            string
		MaxConns       int32
		ConnectTimeout time.Duration
	}

	Auth struct {
		// Secret is the base64-encoded symmetric token key. It must
		// decode to exactly auth.SecretKeySize bytes.
		Secret          string
		Issuer          string
		Audience        string
		AccessTTL       time.Duration
		RefreshTTL      time.Duration
		MaxConcurrent   int64
		AdmissionWindow time.Duration
	}

	// secretKey is the decoded token secret, resolved once during Load.
	secretKey []byte
}

// Default returns the configuration defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.Service.Name = "accountd"
	cfg.Service.Version = "dev"
	cfg.Log.Format = "json"
	cfg.Log.Level = "info"
	cfg.HTTP.Addr = ":8080"
	cfg.HTTP.ReadTimeout = 10 * time.Second
	cfg.HTTP.WriteTimeout = 10 * time.Second
	cfg.HTTP.IdleTimeout = 60 * time.Second
	cfg.Observability.Addr = ":9090"
	cfg.Database.MaxConns = 10
	cfg.Database.ConnectTimeout = 10 * time.Second
	cfg.Auth.Issuer = "accountd"
	cfg.Auth.Audience = "accountd"
	cfg.Auth.AccessTTL = 15 * time.Minute
	cfg.Auth.RefreshTTL = 7 * 24 * time.Hour
	cfg.Auth.MaxConcurrent = auth.DefaultRunnerLimit
	cfg.Auth.AdmissionWindow = auth.DefaultAdmissionWindow
	return cfg
}

// Load resolves configuration in order of precedence: defaults, then the
// YAML file at path (skipped when path is empty), then ACCOUNTD_* environment
// variables, then flags. The token secret is decoded and length-checked
// before returning.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			// ACCOUNTD_DATABASE_URL -> database.url; field names carry no
			// underscores, so a single underscore always separates levels.
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			return strings.ReplaceAll(key, "_", "."), value
		},
	}), nil); err != nil {
		return nil, oops.Code("CONFIG_ENV_FAILED").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if err := cfg.resolveSecret(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveSecret decodes Auth.Secret once. Called during Load; the decoded
// key is immutable for the process lifetime afterwards.
func (c *Config) resolveSecret() error {
	if c.Auth.Secret == "" {
		return oops.Code("CONFIG_SECRET_MISSING").
			Errorf("auth secret is required (base64, %d bytes decoded)", auth.SecretKeySize)
	}
	key, err := base64.StdEncoding.DecodeString(c.Auth.Secret)
	if err != nil {
		return oops.Code("CONFIG_SECRET_INVALID").
			With("operation", "base64 decode").
			Wrap(err)
	}
	if len(key) != auth.SecretKeySize {
		return oops.Code("CONFIG_SECRET_INVALID").
			With("expected_bytes", auth.SecretKeySize).
			With("got_bytes", len(key)).
			Errorf("auth secret must decode to exactly %d bytes", auth.SecretKeySize)
	}
	c.secretKey = key
	return nil
}

func (c *Config) validate() error {
	if c.Auth.AccessTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth access TTL must be positive")
	}
	if c.Auth.RefreshTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth refresh TTL must be positive")
	}
	if c.Auth.RefreshTTL < c.Auth.AccessTTL {
		return oops.Code("CONFIG_INVALID").Errorf("auth refresh TTL must not be shorter than access TTL")
	}
	return nil
}

// SecretKey returns the decoded token secret resolved during Load.
func (c *Config) SecretKey() []byte {
	return c.secretKey
}

// DatabaseURL returns the configured database URL, falling back to the
// DATABASE_URL environment variable.
func (c *Config) DatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return os.Getenv("DATABASE_URL")
}
