package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config はプロセス全体で共有する実行時設定。
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Mongo   MongoConfig   `yaml:"mongo"`
	Auth    AuthConfig    `yaml:"auth"`
	Log     LogConfig     `yaml:"log"`
	Redis   RedisConfig   `yaml:"redis"`
	Catalog CatalogConfig `yaml:"catalog"`
}

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Addr           string        `yaml:"addr"            env:"HTTP_ADDR"           env-default:":8080"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"     env-default:"5s"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"API_ALLOWED_ORIGINS" env-default:"*" env-separator:","`
}

// MongoConfig holds connection and collection names.
type MongoConfig struct {
	URI                string        `yaml:"uri"                 env:"MONGO_URI"             env-default:"mongodb://mongo:27017"`
	Database           string        `yaml:"database"            env:"MONGO_DB"              env-default:"store-catalog"`
	StoreCollection    string        `yaml:"store_collection"    env:"STORE_COLLECTION"      env-default:"stores"`
	ReviewCollection   string        `yaml:"review_collection"   env:"REVIEW_COLLECTION"     env-default:"reviews"`
	FavoriteCollection string        `yaml:"favorite_collection" env:"FAVORITE_COLLECTION"   env-default:"hearts"`
	ConnectTimeout     time.Duration `yaml:"connect_timeout"     env:"MONGO_CONNECT_TIMEOUT" env-default:"10s"`
}

// AuthConfig holds the HS256 verification settings.
type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret"   env:"AUTH_JWT_SECRET"   env-required:"true"`
	JWTIssuer   string `yaml:"jwt_issuer"   env:"AUTH_JWT_ISSUER"`
	JWTAudience string `yaml:"jwt_audience" env:"AUTH_JWT_AUDIENCE"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// RedisConfig は任意のランキングキャッシュ設定。Addr が空ならキャッシュ無効。
type RedisConfig struct {
	Addr     string        `yaml:"addr"      env:"REDIS_ADDR"`
	Password string        `yaml:"password"  env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"        env:"REDIS_DB"          env-default:"0"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"RANKING_CACHE_TTL" env-default:"60s"`
}

// CatalogConfig holds catalog tuning knobs.
type CatalogConfig struct {
	PageSize        int `yaml:"page_size"         env:"PAGE_SIZE"         env-default:"4"`
	SlugMaxAttempts int `yaml:"slug_max_attempts" env:"SLUG_MAX_ATTEMPTS" env-default:"5"`
}

// CacheEnabled reports whether a Redis address is configured.
func (c RedisConfig) CacheEnabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// Origins returns the trimmed, non-empty allowed origins. Empty input means "*".
func (c HTTPConfig) Origins() []string {
	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, origin := range c.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// Validate checks values cleanenv cannot express as tags.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.HTTP.RequestTimeout <= 0 {
		errs = append(errs, errors.New("http.request_timeout must be positive"))
	}
	if strings.TrimSpace(c.Mongo.URI) == "" {
		errs = append(errs, errors.New("mongo.uri is required"))
	}
	if strings.TrimSpace(c.Mongo.Database) == "" {
		errs = append(errs, errors.New("mongo.database is required"))
	}
	if c.Mongo.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("mongo.connect_timeout must be positive"))
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if !strings.EqualFold(c.Log.Format, "json") && !strings.EqualFold(c.Log.Format, "text") {
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, errors.New("redis.db must not be negative"))
	}
	if c.Redis.CacheEnabled() && c.Redis.CacheTTL <= 0 {
		errs = append(errs, errors.New("redis.cache_ttl must be positive"))
	}
	if c.Catalog.PageSize <= 0 {
		errs = append(errs, errors.New("catalog.page_size must be positive"))
	}
	if c.Catalog.SlugMaxAttempts <= 0 {
		errs = append(errs, errors.New("catalog.slug_max_attempts must be positive"))
	}

	return errors.Join(errs...)
}
