package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/pdtools/internal/flagx"
	"github.com/joho/godotenv"
)

// EnvPrefix starts every environment variable read by the server.
const EnvPrefix = "PDTOOLS_"

// parseEnv overlays PDTOOLS_* environment variables. A dotenv file named
// with -env is loaded first; otherwise ./.env is used when present.
// Variables already set in the process win over the file.
func parseEnv(config *Config) {
	if file := flagx.EnvFileFlags(); file != "" {
		if err := godotenv.Load(file); err != nil {
			panic(err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}

	str("HTTP_ADDR", &config.EndpointAddrHTTP)
	str("GRPC_ADDR", &config.EndpointAddrGRPC)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("SECRET_KEY", &config.SecretKey)
	str("S3_ROOT_USER", &config.S3RootUser)
	str("S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	str("REDIS_ADDR", &config.RedisAddr)
	str("REDIS_PASSWORD", &config.RedisPassword)
	str("LOG_LEVEL", &config.LogLevel)
	str("TRACING_ENDPOINT", &config.TracingEndpoint)

	if v, ok := os.LookupEnv(EnvPrefix + "REDIS_DB"); ok {
		config.RedisDB = mustAtoi(v)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "RATE_LIMIT_PER_MINUTE"); ok {
		config.RateLimitPerMinute = mustAtoi(v)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "RATE_LIMIT_BURST"); ok {
		config.RateLimitBurst = mustAtoi(v)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "MAX_UPLOAD_SIZE"); ok {
		config.MaxUploadSize = int64(mustAtoi(v))
	}
	if v, ok := os.LookupEnv(EnvPrefix + "COMPARE_CACHE_TTL"); ok {
		config.CompareCacheTTL = mustDuration(v)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "SHUTDOWN_TIMEOUT"); ok {
		config.ShutdownTimeout = mustDuration(v)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "ALLOWED_ORIGINS"); ok {
		config.AllowedOrigins = splitList(v)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "HARDENED_HASHING"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		config.HardenedHashing = b
	}
}

func mustAtoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		panic(err)
	}
	return n
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		panic(err)
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
