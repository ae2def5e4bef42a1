package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const EnvPrefix = "TASKPULSE"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Auth     AuthConfig     `mapstructure:"auth"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Presence PresenceConfig `mapstructure:"presence"`
	WS       WSConfig       `mapstructure:"ws"`
	Log      LogConfig      `mapstructure:"log"`

	// SigningKey is the decoded auth.signing_key.
	SigningKey []byte `mapstructure:"-"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type StoreConfig struct {
	// Driver is one of postgres, sqlite or mongo.
	Driver        string `mapstructure:"driver"`
	DSN           string `mapstructure:"dsn"`
	MongoDatabase string `mapstructure:"mongo_database"`
}

type AuthConfig struct {
	// SigningKey is the base64 encoded HMAC secret shared with the issuer.
	SigningKey string `mapstructure:"signing_key"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type PresenceConfig struct {
	// Scope is global or rooms.
	Scope string `mapstructure:"scope"`
}

type WSConfig struct {
	PingInterval time.Duration `mapstructure:"ping_interval"`
	PongWait     time.Duration `mapstructure:"pong_wait"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "taskpulse.db")
	v.SetDefault("store.mongo_database", "taskpulse")
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("presence.scope", "global")
	v.SetDefault("ws.ping_interval", 25*time.Second)
	v.SetDefault("ws.pong_wait", 60*time.Second)
	v.SetDefault("log.level", "info")
}

// Load builds the configuration from defaults, the optional file at path
// and TASKPULSE_ prefixed environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Addr == "" {
		return errors.New("server address cannot be empty")
	}

	switch c.Store.Driver {
	case "postgres", "sqlite", "mongo":
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return errors.New("store DSN cannot be empty")
	}
	if c.Store.Driver == "mongo" && c.Store.MongoDatabase == "" {
		return errors.New("mongo database cannot be empty")
	}

	signingKey, err := decodeSigningSecret(c.Auth.SigningKey)
	if err != nil {
		return fmt.Errorf("decode signing secret: %w", err)
	}
	c.SigningKey = signingKey

	if c.Presence.Scope != "global" && c.Presence.Scope != "rooms" {
		return fmt.Errorf("invalid presence scope %q", c.Presence.Scope)
	}

	if c.WS.PingInterval <= 0 || c.WS.PongWait <= 0 {
		return errors.New("websocket heartbeat intervals must be positive")
	}
	if c.WS.PingInterval >= c.WS.PongWait {
		return fmt.Errorf("ping interval %s must be shorter than pong wait %s", c.WS.PingInterval, c.WS.PongWait)
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	return nil
}

// LogLevel returns the parsed log.level. It is valid after Load.
func (c *Config) LogLevel() zapcore.Level {
	level, _ := zapcore.ParseLevel(c.Log.Level)
	return level
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	if base64Secret == "" {
		return nil, errors.New("signing secret cannot be empty")
	}

	return base64.StdEncoding.DecodeString(base64Secret)
}
