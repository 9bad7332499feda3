package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Redis     RedisConfig     `yaml:"redis"`
	Bookings  BookingsConfig  `yaml:"bookings"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type MongoConfig struct {
	// URI "memory://" selects the in-process store.
	URI         string `yaml:"uri"`
	Database    string `yaml:"database"`
	Collection  string `yaml:"collection"`
	MaxPoolSize uint64 `yaml:"max_pool_size"`
	MinPoolSize uint64 `yaml:"min_pool_size"`
}

// RedisConfig with an empty Address disables the stats cache and cross-instance events.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BookingsConfig struct {
	MaxListLimit      int `yaml:"max_list_limit"`
	StatsCacheSeconds int `yaml:"stats_cache_seconds"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const MemoryURI = "memory://"

func Default() Config {
	return Config{
		Server: ServerConfig{Port: ":5000", CORSOrigins: []string{"*"}},
		Mongo: MongoConfig{
			URI:         "mongodb://localhost:27017",
			Database:    "servicedesk",
			Collection:  "bookings",
			MaxPoolSize: 10,
			MinPoolSize: 1,
		},
		Redis:     RedisConfig{PoolSize: 10},
		Bookings:  BookingsConfig{MaxListLimit: 200, StatsCacheSeconds: 15},
		RateLimit: RateLimitConfig{RPS: 5, Burst: 10},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from defaults, an optional YAML file at path
// (environment references inside it are expanded) and finally environment
// variables, which win. A .env file is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		expanded := []byte(os.ExpandEnv(string(data)))
		if err := yaml.Unmarshal(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.Server.Port = normalizePort(cfg.Server.Port)
	return &cfg, nil
}

func (c *Config) StatsCacheTTL() time.Duration {
	return time.Duration(c.Bookings.StatsCacheSeconds) * time.Second
}

func (c *Config) UseMemoryStore() bool {
	return c.Mongo.URI == MemoryURI
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Port, "PORT")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	setString(&cfg.Mongo.URI, "MONGODB_URI")
	setString(&cfg.Mongo.Database, "MONGODB_DATABASE")
	setString(&cfg.Mongo.Collection, "MONGODB_COLLECTION")
	setString(&cfg.Redis.Address, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")

	ints := []struct {
		key string
		dst *int
	}{
		{"REDIS_DB", &cfg.Redis.DB},
		{"MAX_LIST_LIMIT", &cfg.Bookings.MaxListLimit},
		{"STATS_CACHE_TTL", &cfg.Bookings.StatsCacheSeconds},
		{"RATE_LIMIT_BURST", &cfg.RateLimit.Burst},
	}
	for _, e := range ints {
		if v := os.Getenv(e.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = n
		}
	}

	pools := []struct {
		key string
		dst *uint64
	}{
		{"MONGO_MAX_POOL", &cfg.Mongo.MaxPoolSize},
		{"MONGO_MIN_POOL", &cfg.Mongo.MinPoolSize},
	}
	for _, e := range pools {
		if v := os.Getenv(e.key); v != "" {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = n
		}
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimit.RPS = f
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizePort(port string) string {
	if port == "" {
		return ":5000"
	}
	if port[0] != ':' && !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}
