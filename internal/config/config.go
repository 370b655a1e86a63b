package config

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT, default=3000"`
	JWTSecret string `env:"JWT_SECRET, default=secreto123"`
	GinMode   string `env:"GIN_MODE, default=debug"`

	// BaseURL prefixes stored photo references when they are rendered.
	BaseURL string `env:"BASE_URL"`

	TeamServiceURL     string        `env:"EQUIPO_SERVICE_URL, default=http://localhost:4000/equipos"`
	TeamServiceTimeout time.Duration `env:"EQUIPO_SERVICE_TIMEOUT, default=10s"`

	UploadDir   string   `env:"UPLOAD_DIR"`
	CORSOrigins []string `env:"CORS_ORIGINS, default=http://localhost:5173,https://tinku.softcraftbol.com,http://localhost:3000"`

	DB    DBConfig
	Redis RedisConfig
	S3    S3Config
	Log   LogConfig
}

type DBConfig struct {
	Host     string `env:"DB_HOST, default=localhost"`
	Port     string `env:"DB_PORT, default=5432"`
	User     string `env:"DB_USER, default=postgres"`
	Password string `env:"DB_PASSWORD, default=password"`
	Name     string `env:"DB_NAME, default=tinkus"`
	SSLMode  string `env:"DB_SSLMODE, default=disable"`
	TimeZone string `env:"DB_TIMEZONE, default=UTC"`

	// MigrationsPath switches schema management from AutoMigrate to golang-migrate.
	MigrationsPath string `env:"MIGRATIONS_PATH"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	DB       int           `env:"REDIS_DB, default=0"`
	Password string        `env:"REDIS_PASSWORD"`
	TTL      time.Duration `env:"SUMMARY_CACHE_TTL, default=30s"`
}

type S3Config struct {
	Bucket    string `env:"S3_BUCKET"`
	Region    string `env:"S3_REGION, default=us-east-1"`
	AccessKey string `env:"AWS_ACCESS_KEY_ID"`
	SecretKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Folder    string `env:"S3_FOLDER, default=users"`
}

type LogConfig struct {
	File  string `env:"LOG_FILE, default=./logs/app.log"`
	Level string `env:"LOG_LEVEL, default=info"`
}

// Load reads an optional .env file and then the process environment.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found – relying on env vars")
	}

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// DSN builds the key/value connection string used by the GORM postgres driver.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.TimeZone,
	)
}

// URL builds the postgres:// form expected by golang-migrate.
func (c DBConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}
