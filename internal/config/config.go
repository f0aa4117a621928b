package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultMongoURI is used when MONGO_URI is not set.
const DefaultMongoURI = "mongodb://mongo:27017/secureapp"

// Config is the root configuration for the backend.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// JSONBodyLimit caps the size in bytes of JSON request bodies.
	JSONBodyLimit int64 `mapstructure:"json_body_limit"`
}

// AdminConfig controls the operational listener. Port 0 disables it.
type AdminConfig struct {
	Port int `mapstructure:"port"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	MinPool        uint64        `mapstructure:"min_pool"`
	MaxPool        uint64        `mapstructure:"max_pool"`
	AppName        string        `mapstructure:"app_name"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	ServiceName  string `mapstructure:"service_name"`
	LogLevel     string `mapstructure:"log_level"`
}

// Load reads config from the optional YAML file at path, then overlays
// environment variables. PORT and MONGO_URI are read without a prefix; every
// other key uses the BACKEND_ prefix (e.g. BACKEND_ADMIN_PORT).
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("BACKEND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// BindEnv with explicit names ignores the prefix. Empty values are
	// treated as unset, so PORT="" still yields the default.
	if err := v.BindEnv("server.port", "PORT"); err != nil {
		return nil, fmt.Errorf("binding PORT: %w", err)
	}
	if err := v.BindEnv("mongo.uri", "MONGO_URI"); err != nil {
		return nil, fmt.Errorf("binding MONGO_URI: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values the server cannot start with. The Mongo URI is not
// checked here: a bad URI is a connection failure, which is logged at runtime
// and never stops the HTTP server.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range 1-65535", c.Server.Port))
	}
	if c.Admin.Port < 0 || c.Admin.Port > 65535 {
		errs = append(errs, fmt.Errorf("admin.port %d out of range 0-65535", c.Admin.Port))
	}
	if c.Admin.Port != 0 && c.Admin.Port == c.Server.Port {
		errs = append(errs, fmt.Errorf("admin.port must differ from server.port (%d)", c.Server.Port))
	}
	if c.Server.JSONBodyLimit <= 0 {
		errs = append(errs, fmt.Errorf("server.json_body_limit must be positive, got %d", c.Server.JSONBodyLimit))
	}
	if c.Mongo.MaxPool != 0 && c.Mongo.MinPool > c.Mongo.MaxPool {
		errs = append(errs, fmt.Errorf("mongo.min_pool %d exceeds mongo.max_pool %d", c.Mongo.MinPool, c.Mongo.MaxPool))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.json_body_limit", 100*1024)

	v.SetDefault("admin.port", 0)

	v.SetDefault("mongo.uri", DefaultMongoURI)
	v.SetDefault("mongo.connect_timeout", 30*time.Second)
	v.SetDefault("mongo.min_pool", 0)
	v.SetDefault("mongo.max_pool", 100)
	v.SetDefault("mongo.app_name", "secureapp-backend")

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_insecure", true)
	v.SetDefault("telemetry.service_name", "secureapp-backend")
	v.SetDefault("telemetry.log_level", "info")
}
