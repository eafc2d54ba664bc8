package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	envcfg "github.com/Skotchmaster/inventory_api/pkg/config"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DBDriver    string
	DatabaseURL string

	JWTSecret        []byte
	JWTIssuer        string
	JWTAudience      string
	JWTExpireMinutes int
	RefreshTokenTTL  time.Duration

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	ImageStorage string
	ImageRoot    string
	S3Bucket     string
	S3Region     string
	S3Prefix     string
	S3Endpoint   string
}

// fileConfig is the optional YAML file named by CONFIG_FILE. Environment
// variables win over anything set here.
type fileConfig struct {
	ServiceName string `yaml:"service_name"`
	ServerPort  int    `yaml:"server_port"`
	LogLevel    string `yaml:"log_level"`

	Database struct {
		Driver string `yaml:"driver"`
		URL    string `yaml:"url"`
	} `yaml:"database"`

	JWT struct {
		Secret          string `yaml:"secret"`
		Issuer          string `yaml:"issuer"`
		Audience        string `yaml:"audience"`
		ExpireMinutes   int    `yaml:"expire_minutes"`
		RefreshTTLHours int    `yaml:"refresh_ttl_hours"`
	} `yaml:"jwt"`

	Kafka struct {
		Brokers []string `yaml:"brokers"`
	} `yaml:"kafka"`

	Elasticsearch struct {
		URL      string `yaml:"url"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Index    string `yaml:"index"`
	} `yaml:"elasticsearch"`

	Images struct {
		Storage    string `yaml:"storage"`
		Root       string `yaml:"root"`
		S3Bucket   string `yaml:"s3_bucket"`
		S3Region   string `yaml:"s3_region"`
		S3Prefix   string `yaml:"s3_prefix"`
		S3Endpoint string `yaml:"s3_endpoint"`
	} `yaml:"images"`
}

func readFile(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}

func orInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}

func orString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	n, ok := envcfg.EnvIntDefault(key, def)
	if !ok {
		return 0, fmt.Errorf("env %s is not an integer", key)
	}
	return n, nil
}

// Load reads .env (if present), the optional YAML file and the environment,
// and validates the result. The first missing or malformed key is reported.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Notice: cannot load .env: %v. Using system environment variables", err)
	}

	fc, err := readFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServiceName: envcfg.EnvDefault("SERVICE_NAME", orString(fc.ServiceName, "inventory-api")),
		LogLevel:    envcfg.EnvDefault("LOG_LEVEL", orString(fc.LogLevel, "info")),

		DBDriver:    strings.ToLower(envcfg.EnvDefault("DB_DRIVER", orString(fc.Database.Driver, "postgres"))),
		DatabaseURL: envcfg.EnvDefault("DATABASE_URL", fc.Database.URL),

		JWTSecret:   []byte(envcfg.EnvDefault("JWT_SECRET", fc.JWT.Secret)),
		JWTIssuer:   envcfg.EnvDefault("JWT_ISSUER", fc.JWT.Issuer),
		JWTAudience: envcfg.EnvDefault("JWT_AUDIENCE", fc.JWT.Audience),

		KafkaBrokers: envcfg.CSV(envcfg.EnvDefault("KAFKA_BROKERS", strings.Join(fc.Kafka.Brokers, ","))),

		ESURL:      envcfg.EnvDefault("ES_URL", fc.Elasticsearch.URL),
		ESUser:     envcfg.EnvDefault("ES_USER", fc.Elasticsearch.User),
		ESPassword: envcfg.EnvDefault("ES_PASSWORD", fc.Elasticsearch.Password),
		ESIndex:    envcfg.EnvDefault("ES_INDEX", orString(fc.Elasticsearch.Index, "products")),

		ImageStorage: strings.ToLower(envcfg.EnvDefault("IMAGE_STORAGE", orString(fc.Images.Storage, "fs"))),
		ImageRoot:    envcfg.EnvDefault("IMAGE_ROOT", orString(fc.Images.Root, "wwwroot")),
		S3Bucket:     envcfg.EnvDefault("S3_BUCKET", fc.Images.S3Bucket),
		S3Region:     envcfg.EnvDefault("S3_REGION", fc.Images.S3Region),
		S3Prefix:     envcfg.EnvDefault("S3_PREFIX", fc.Images.S3Prefix),
		S3Endpoint:   envcfg.EnvDefault("S3_ENDPOINT", fc.Images.S3Endpoint),
	}

	if cfg.ServerPort, err = intEnv("SERVER_PORT", orInt(fc.ServerPort, 8080)); err != nil {
		return nil, err
	}
	if cfg.JWTExpireMinutes, err = intEnv("JWT_EXPIRE_MINUTES", fc.JWT.ExpireMinutes); err != nil {
		return nil, err
	}
	refreshHours, err := intEnv("REFRESH_TOKEN_TTL_HOURS", orInt(fc.JWT.RefreshTTLHours, 168))
	if err != nil {
		return nil, err
	}
	cfg.RefreshTokenTTL = time.Duration(refreshHours) * time.Hour

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	checks := []error{
		envcfg.NonEmpty(c.DatabaseURL, "DATABASE_URL"),
		envcfg.NonEmpty(string(c.JWTSecret), "JWT_SECRET"),
		envcfg.NonEmpty(c.JWTIssuer, "JWT_ISSUER"),
		envcfg.NonEmpty(c.JWTAudience, "JWT_AUDIENCE"),
		envcfg.Positive(c.JWTExpireMinutes, "JWT_EXPIRE_MINUTES"),
		envcfg.Positive(int(c.RefreshTokenTTL/time.Hour), "REFRESH_TOKEN_TTL_HOURS"),
		envcfg.Positive(c.ServerPort, "SERVER_PORT"),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}

	switch c.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres, mysql or sqlite, got %q", c.DBDriver)
	}

	switch c.ImageStorage {
	case "fs":
	case "s3":
		if err := envcfg.NonEmpty(c.S3Bucket, "S3_BUCKET"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("IMAGE_STORAGE must be fs or s3, got %q", c.ImageStorage)
	}
	return nil
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWTExpireMinutes) * time.Minute
}

func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.ServerPort)
}
