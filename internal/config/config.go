package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
		Mode string
	}
	Database struct {
		Driver string
		Path   string
	}
	Auth struct {
		JWTSecret       string
		TokenTTLMinutes int
		BcryptCost      int
	}
	CORS struct {
		AllowedOrigins []string
	}
	Log struct {
		Level string
	}
	Backup struct {
		Bucket    string
		KeyPrefix string
		Interval  time.Duration
		Retain    int
	}
	Storage struct {
		Region   string
		Endpoint string
	}
	AWS struct {
		Profile string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	_ = godotenv.Load() // optional .env; real environment wins

	v := viper.New()
	v.SetEnvPrefix("TODO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.CORS.AllowedOrigins = splitOrigins(cfg.CORS.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:5000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", DriverMemory)
	v.SetDefault("database.path", "data/todo.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttlminutes", 0)
	v.SetDefault("auth.bcryptcost", 10)
	v.SetDefault("cors.allowedorigins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("backup.bucket", "")
	v.SetDefault("backup.keyprefix", "todo-snapshots")
	v.SetDefault("backup.interval", "15m")
	v.SetDefault("backup.retain", 0)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("auth jwt secret is required")
	}
	if c.Auth.TokenTTLMinutes < 0 {
		return fmt.Errorf("auth token ttl must not be negative")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("auth bcrypt cost must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	switch c.Database.Driver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if c.Backup.Bucket != "" && c.Backup.Interval <= 0 {
		return fmt.Errorf("backup interval must be positive")
	}
	if c.Backup.Retain < 0 {
		return fmt.Errorf("backup retain must not be negative")
	}
	if c.Backup.Retain > 0 && strings.Trim(c.Backup.KeyPrefix, "/ ") == "" {
		return fmt.Errorf("backup key prefix is required when retain is set")
	}
	return nil
}

// TokenTTL converts the configured minutes into a duration; zero disables expiry.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

func splitOrigins(raw []string) []string {
	var out []string
	for _, entry := range raw {
		for _, origin := range strings.Split(entry, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				out = append(out, origin)
			}
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
