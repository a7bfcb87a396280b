package app

import (
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/degreeplan-backend/internal/data/db"
	"github.com/yungbote/degreeplan-backend/internal/modules/planning/steps"
	"github.com/yungbote/degreeplan-backend/internal/observability"
	"github.com/yungbote/degreeplan-backend/internal/platform/envutil"
	"github.com/yungbote/degreeplan-backend/internal/platform/logger"
)

type Config struct {
	DBDriver   string
	SQLitePath string
	Postgres   db.PostgresConfig

	HTTPAddr    string
	CORSOrigins []string

	RedisAddr     string
	RedisCacheTTL time.Duration

	LevelPatchesFile string
	ThesisCredits    int

	MetricsEnabled bool
	Otel           observability.OtelConfig
}

func LoadConfig(log *logger.Logger) Config {
	ratio, err := strconv.ParseFloat(envutil.Get("OTEL_SAMPLE_RATIO", "1", log), 64)
	if err != nil {
		log.Warn("OTEL_SAMPLE_RATIO could not be parsed, using 1", "error", err)
		ratio = 1
	}
	return Config{
		DBDriver:   strings.ToLower(envutil.Get("DB_DRIVER", db.DriverSQLite, log)),
		SQLitePath: envutil.Get("SQLITE_PATH", "degreeplan.db", log),
		Postgres: db.PostgresConfig{
			Host:     envutil.Get("POSTGRES_HOST", "localhost", log),
			Port:     envutil.Get("POSTGRES_PORT", "5432", log),
			User:     envutil.Get("POSTGRES_USER", "postgres", log),
			Password: envutil.Get("POSTGRES_PASSWORD", "", log),
			Name:     envutil.Get("POSTGRES_NAME", "degreeplan", log),
			SSLMode:  envutil.Get("POSTGRES_SSLMODE", "disable", log),
		},

		HTTPAddr:    envutil.Get("HTTP_ADDR", ":8080", log),
		CORSOrigins: splitList(envutil.Get("CORS_ALLOWED_ORIGINS", "", log)),

		RedisAddr:     envutil.Get("REDIS_ADDR", "", log),
		RedisCacheTTL: time.Duration(envutil.Int("REDIS_CACHE_TTL_SECONDS", 600, log)) * time.Second,

		LevelPatchesFile: envutil.Get("LEVEL_PATCHES_FILE", "", log),
		ThesisCredits:    envutil.Int("THESIS_CREDITS", steps.DefaultThesisCredits, log),

		MetricsEnabled: envutil.Bool("METRICS_ENABLED", true, log),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false, log),
			ServiceName: envutil.Get("OTEL_SERVICE_NAME", "degreeplan", log),
			Environment: envutil.Get("OTEL_ENVIRONMENT", "development", log),
			Version:     envutil.Get("OTEL_SERVICE_VERSION", "", log),
			SampleRatio: ratio,
			Endpoint:    envutil.Get("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
			Headers:     observability.ParseHeaders(envutil.Get("OTEL_EXPORTER_OTLP_HEADERS", "", log)),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
