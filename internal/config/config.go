package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server       ServerConfig   `mapstructure:"server"`
	Storage      StorageConfig  `mapstructure:"storage"`
	Tokens       TokenConfig    `mapstructure:"tokens"`
	Gitolite     GitoliteConfig `mapstructure:"gitolite"`
	Repositories []string       `mapstructure:"repositories"`
	Logging      LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

// StorageConfig holds content store configuration
type StorageConfig struct {
	Type string `mapstructure:"type"` // filesystem, s3

	// Filesystem backend
	DataRoot     string `mapstructure:"data_root"`
	DirMode      uint32 `mapstructure:"dir_mode"`
	FileMode     uint32 `mapstructure:"file_mode"`
	VerifyWrites bool   `mapstructure:"verify_writes"`

	// S3 backend
	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Region    string `mapstructure:"s3_region"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
	S3Endpoint  string `mapstructure:"s3_endpoint"` // For S3-compatible services
	S3Prefix    string `mapstructure:"s3_prefix"`
}

// IsS3 returns true if the storage type is S3
func (s *StorageConfig) IsS3() bool {
	return strings.ToLower(s.Type) == "s3"
}

// IsFilesystem returns true if the storage type is filesystem
func (s *StorageConfig) IsFilesystem() bool {
	return strings.ToLower(s.Type) == "filesystem" || s.Type == ""
}

// TokenConfig holds bearer token store configuration
type TokenConfig struct {
	// Dir is the directory holding one token file per user.
	// Falls back to a subdirectory of the OS temp dir when empty.
	Dir string `mapstructure:"dir"`

	// TTLSeconds is the token lifetime extension applied on each authentication
	TTLSeconds int `mapstructure:"ttl_seconds"`

	// PasswordLength is the length of generated token passwords
	PasswordLength int `mapstructure:"password_length"`
}

// TTL returns the token lifetime as a duration
func (t *TokenConfig) TTL() time.Duration {
	return time.Duration(t.TTLSeconds) * time.Second
}

// Directory returns the configured token directory, falling back to the temp dir
func (t *TokenConfig) Directory() string {
	if t.Dir != "" {
		return t.Dir
	}
	return filepath.Join(os.TempDir(), "gitolfs-tokens")
}

// GitoliteConfig holds the access oracle configuration
type GitoliteConfig struct {
	// BinDir is the directory containing the gitolite binary
	BinDir string `mapstructure:"bin_dir"`

	// UserEnv is the environment variable naming the SSH-authenticated user
	UserEnv string `mapstructure:"user_env"`

	// BinDirEnv is the environment variable naming the gitolite binary directory;
	// it overrides BinDir when set, matching gitolite's forced-command environment
	BinDirEnv string `mapstructure:"bin_dir_env"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"` // debug, info, warn, error
	Output     string `mapstructure:"output"` // console, file
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // json, console
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigType("yaml")

	v.SetEnvPrefix("GITOLFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configLoaded := false

	// 1. Try explicit config path first
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			configLoaded = true
		}
	}

	// 2. Try common filesystem locations
	if !configLoaded {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/gitolfs")

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// Config file not found; rely on defaults and env vars
		}
	}

	overrideFromEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	// Storage defaults
	v.SetDefault("storage.type", "filesystem")
	v.SetDefault("storage.data_root", "./data/lfs")
	v.SetDefault("storage.dir_mode", 0o700)
	v.SetDefault("storage.file_mode", 0o600)
	v.SetDefault("storage.verify_writes", true)

	// Token defaults
	v.SetDefault("tokens.dir", "")
	v.SetDefault("tokens.ttl_seconds", 7200)
	v.SetDefault("tokens.password_length", 24)

	// Gitolite defaults
	v.SetDefault("gitolite.bin_dir", "")
	v.SetDefault("gitolite.user_env", "GL_USER")
	v.SetDefault("gitolite.bin_dir_env", "GL_BINDIR")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.output", "console")
	v.SetDefault("logging.output_path", "stdout")
	v.SetDefault("logging.format", "json")
}

// overrideFromEnv handles special environment variable overrides
func overrideFromEnv(v *viper.Viper) {
	// S3 credentials from env (more secure than config file)
	if s3Key := os.Getenv("AWS_ACCESS_KEY_ID"); s3Key != "" {
		v.Set("storage.s3_access_key", s3Key)
	}
	if s3Secret := os.Getenv("AWS_SECRET_ACCESS_KEY"); s3Secret != "" {
		v.Set("storage.s3_secret_key", s3Secret)
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Storage.IsS3() {
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required when using S3 storage")
		}
		if c.Storage.S3Region == "" {
			return fmt.Errorf("S3 region is required when using S3 storage")
		}
	} else if c.Storage.IsFilesystem() {
		if c.Storage.DataRoot == "" {
			return fmt.Errorf("storage data root is required for filesystem storage")
		}
	} else {
		return fmt.Errorf("invalid storage type: %s", c.Storage.Type)
	}

	if c.Tokens.TTLSeconds <= 0 {
		return fmt.Errorf("invalid token ttl: %d", c.Tokens.TTLSeconds)
	}
	if c.Tokens.PasswordLength < 16 {
		return fmt.Errorf("token password length %d is too short", c.Tokens.PasswordLength)
	}

	return nil
}

// AllowsRepository reports whether repo is in the configured allowlist
func (c *Config) AllowsRepository(repo string) bool {
	for _, r := range c.Repositories {
		if r == repo {
			return true
		}
	}
	return false
}

// ServerAddress returns the HTTP server address
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Mode == "debug" || c.Server.Mode == "development"
}
