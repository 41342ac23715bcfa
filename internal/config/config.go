package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port          string
	AllowedOrigin string

	DatabaseURL string
	DBHost      string
	DBPort      string
	DBName      string
	DBUser      string
	DBPassword  string

	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	SummaryTTLSeconds int

	ImageDir       string
	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttl, err := strconv.Atoi(getEnv("SUMMARY_TTL_SECONDS", "60"))
	if err != nil || ttl < 1 {
		ttl = 60
	}

	cfg := Config{
		Port:          getEnv("PORT", "8000"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "*"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      os.Getenv("DB_HOST"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBName:      getEnv("DB_NAME", "inventario"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  os.Getenv("DB_PASSWORD"),

		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           redisDB,
		SummaryTTLSeconds: ttl,

		ImageDir:       getEnv("IMAGE_DIR", "static/images"),
		SupabaseURL:    strings.TrimSpace(os.Getenv("SUPABASE_URL")),
		SupabaseKey:    strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_KEY")),
		SupabaseBucket: getEnv("SUPABASE_BUCKET", "productos"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// DSN returns the postgres connection string. DATABASE_URL wins when
// set; otherwise the URL is assembled from the DB_* variables. Empty
// means no database is configured and the in-memory store is used.
// client_encoding is forced to UTF8 so Spanish product names survive
// servers with a different default.
func (c Config) DSN() string {
	dsn := c.DatabaseURL
	if dsn == "" {
		if c.DBHost == "" {
			return ""
		}
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.DBUser, c.DBPassword),
			Host:   c.DBHost + ":" + c.DBPort,
			Path:   "/" + c.DBName,
		}
		dsn = u.String()
	}
	if !strings.Contains(dsn, "client_encoding=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "client_encoding=UTF8"
	}
	return dsn
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
