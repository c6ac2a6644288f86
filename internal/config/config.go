// Package config loads mongograph settings from a YAML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mongo  MongoConfig  `yaml:"mongo"`
	Query  QueryConfig  `yaml:"query"`
	Server ServerConfig `yaml:"server"`
	OTel   OTelConfig   `yaml:"otel"`
	Log    LogConfig    `yaml:"log"`
}

type MongoConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	AppName        string        `yaml:"appName"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
}

type QueryConfig struct {
	// Collections is the whitelist of readable collections. Empty allows all.
	Collections    []string `yaml:"collections"`
	MaxLimit       int64    `yaml:"maxLimit"`
	MaxConcurrency int      `yaml:"maxConcurrency"`
	StackTraces    bool     `yaml:"stackTraces"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	Pretty       bool          `yaml:"pretty"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"maxBodyBytes"`
	CORSOrigins  []string      `yaml:"corsOrigins"`
}

type OTelConfig struct {
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

type LogConfig struct {
	Development bool `yaml:"development"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			AppName:        "mongograph",
			ConnectTimeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Addr:    ":8080",
			Timeout: 10 * time.Second,
		},
		OTel: OTelConfig{Service: "mongograph"},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Environment variables consulted by Load.
const (
	EnvMongoURI     = "MONGOGRAPH_MONGO_URI"
	EnvDatabase     = "MONGOGRAPH_DATABASE"
	EnvServerAddr   = "MONGOGRAPH_SERVER_ADDR"
	EnvMaxLimit     = "MONGOGRAPH_MAX_LIMIT"
	EnvOTelEndpoint = "MONGOGRAPH_OTEL_ENDPOINT"
)

func (c *Config) applyEnv() error {
	c.Mongo.URI = getEnv(EnvMongoURI, c.Mongo.URI)
	c.Mongo.Database = getEnv(EnvDatabase, c.Mongo.Database)
	c.Server.Addr = getEnv(EnvServerAddr, c.Server.Addr)
	c.OTel.Endpoint = getEnv(EnvOTelEndpoint, c.OTel.Endpoint)
	if v := os.Getenv(EnvMaxLimit); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxLimit, err)
		}
		c.Query.MaxLimit = n
	}
	return nil
}

// Validate reports settings that cannot work. A database is only required
// when the caller is going to connect.
func (c Config) Validate(needDatabase bool) error {
	if needDatabase {
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri is required")
		}
		if c.Mongo.Database == "" {
			return fmt.Errorf("mongo.database is required (or set %s)", EnvDatabase)
		}
	}
	if c.Mongo.ConnectTimeout < 0 {
		return fmt.Errorf("mongo.connectTimeout must not be negative")
	}
	if c.Query.MaxLimit < 0 {
		return fmt.Errorf("query.maxLimit must not be negative")
	}
	if c.Query.MaxConcurrency < 0 {
		return fmt.Errorf("query.maxConcurrency must not be negative")
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server.timeout must not be negative")
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.maxBodyBytes must not be negative")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
