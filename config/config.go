/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/suparena/storagegateway/errors"
)

// Backend names accepted by Table.Backend and Blob.Backend.
const (
	BackendDynamoDB = "dynamodb"
	BackendS3       = "s3"
	BackendMinIO    = "minio"
	BackendMemory   = "memory"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "STORAGEGATEWAY"

const redactedValue = "REDACTED"

// Config is the full runtime configuration of the gateway and demo.
type Config struct {
	Table TableConfig `mapstructure:"table" yaml:"table"`
	Blob  BlobConfig  `mapstructure:"blob" yaml:"blob"`
	AWS   AWSConfig   `mapstructure:"aws" yaml:"aws"`
	MinIO MinIOConfig `mapstructure:"minio" yaml:"minio"`
	Log   LogConfig   `mapstructure:"log" yaml:"log"`
	Trace bool        `mapstructure:"trace" yaml:"trace"`
}

type TableConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Name    string `mapstructure:"name" yaml:"name"`
}

type BlobConfig struct {
	Backend   string `mapstructure:"backend" yaml:"backend"`
	Container string `mapstructure:"container" yaml:"container"`
	Name      string `mapstructure:"name" yaml:"name"`
}

// AWSConfig configures DynamoDB and S3 clients. Empty credentials fall back
// to the SDK's default provider chain.
type AWSConfig struct {
	Region          string `mapstructure:"region" yaml:"region"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	AccessKeyID     string `mapstructure:"accessKeyId" yaml:"accessKeyId,omitempty"`
	SecretAccessKey string `mapstructure:"secretAccessKey" yaml:"secretAccessKey,omitempty"`
	SessionToken    string `mapstructure:"sessionToken" yaml:"sessionToken,omitempty"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"accessKey" yaml:"accessKey,omitempty"`
	SecretKey string `mapstructure:"secretKey" yaml:"secretKey,omitempty"`
	UseSSL    bool   `mapstructure:"useSSL" yaml:"useSSL"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// LoadOptions locates the optional inputs of Load.
type LoadOptions struct {
	// ConfigFile is a YAML file; empty means none.
	ConfigFile string
	// EnvFile is a dotenv file loaded into the process environment before
	// variables are read. Empty means ".env"; a missing file is ignored.
	EnvFile string
	// Flags overrides any other source for the flags named in FlagKeys that
	// were set on the command line.
	Flags *pflag.FlagSet
}

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"table-backend":  "table.backend",
	"table":          "table.name",
	"blob-backend":   "blob.backend",
	"container":      "blob.container",
	"region":         "aws.region",
	"endpoint":       "aws.endpoint",
	"minio-endpoint": "minio.endpoint",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"trace":          "trace",
}

var defaults = map[string]any{
	"table.backend":       BackendDynamoDB,
	"table.name":          "Users",
	"blob.backend":        BackendS3,
	"blob.container":      "test-container",
	"blob.name":           "hello.txt",
	"aws.region":          "us-east-1",
	"aws.endpoint":        "",
	"aws.accessKeyId":     "",
	"aws.secretAccessKey": "",
	"aws.sessionToken":    "",
	"minio.endpoint":      "localhost:9000",
	"minio.accessKey":     "",
	"minio.secretKey":     "",
	"minio.useSSL":        false,
	"log.level":           "info",
	"log.format":          "text",
	"trace":               false,
}

// Conventional variable names accepted alongside the prefixed ones.
var aliases = map[string][]string{
	"aws.region":          {"AWS_REGION"},
	"aws.accessKeyId":     {"AWS_ACCESS_KEY_ID", "AWS_ACCESS_KEY"},
	"aws.secretAccessKey": {"AWS_SECRET_ACCESS_KEY", "AWS_SECRET_KEY"},
	"aws.sessionToken":    {"AWS_SESSION_TOKEN"},
	"aws.endpoint":        {"AWS_ENDPOINT_URL"},
	"table.name":          {"AWS_DDB_TABLE"},
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	cfg, err := decode(v)
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Load reads configuration with increasing precedence from defaults, the YAML
// file, the environment (after applying the dotenv file) and changed flags.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !(opts.EnvFile == "" && stderrors.Is(err, fs.ErrNotExist)) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	v := newViper()
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigFile, err)
		}
	}
	if opts.Flags != nil {
		for name, key := range FlagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range aliases {
		_ = v.BindEnv(append([]string{key, envName(key)}, names...)...)
	}
	return v
}

// envName is the prefixed variable AutomaticEnv derives for key.
func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.Table.Backend = strings.ToLower(strings.TrimSpace(cfg.Table.Backend))
	cfg.Blob.Backend = strings.ToLower(strings.TrimSpace(cfg.Blob.Backend))
	return &cfg, nil
}

// Validate rejects unknown backends and missing names.
func (c *Config) Validate() error {
	switch c.Table.Backend {
	case BackendDynamoDB, BackendMemory:
	default:
		return errors.NewValidationError("table.backend", fmt.Sprintf("unknown backend %q (want %s or %s)", c.Table.Backend, BackendDynamoDB, BackendMemory))
	}
	switch c.Blob.Backend {
	case BackendS3, BackendMinIO, BackendMemory:
	default:
		return errors.NewValidationError("blob.backend", fmt.Sprintf("unknown backend %q (want %s, %s or %s)", c.Blob.Backend, BackendS3, BackendMinIO, BackendMemory))
	}
	if c.Table.Name == "" {
		return errors.NewValidationError("table.name", "must not be empty")
	}
	if c.Blob.Container == "" {
		return errors.NewValidationError("blob.container", "must not be empty")
	}
	if c.Blob.Backend == BackendMinIO && c.MinIO.Endpoint == "" {
		return errors.NewValidationError("minio.endpoint", "required for the minio backend")
	}
	if (c.AWS.AccessKeyID == "") != (c.AWS.SecretAccessKey == "") {
		return errors.NewValidationError("aws.secretAccessKey", "access key id and secret access key must be set together")
	}
	return nil
}

// Redacted returns a copy with every secret replaced by a fixed mask.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return redactedValue
	}
	c.AWS.AccessKeyID = mask(c.AWS.AccessKeyID)
	c.AWS.SecretAccessKey = mask(c.AWS.SecretAccessKey)
	c.AWS.SessionToken = mask(c.AWS.SessionToken)
	c.MinIO.AccessKey = mask(c.MinIO.AccessKey)
	c.MinIO.SecretKey = mask(c.MinIO.SecretKey)
	return c
}

// YAML renders the redacted configuration.
func (c Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return out, nil
}
