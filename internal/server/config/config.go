// Package config handles configuration for the server component,
// including defaults, environment (.env), JSON overlay, and command-line
// flags. Later layers override earlier ones.
package config

import "time"

// Config holds runtime settings for the pdtools server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the HTTP API.
//   - EndpointAddrGRPC: bind address for the gRPC health endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty keeps history in memory.
//   - SecretKey: HMAC secret for verifying bearer JWTs (HS256). Do not use test defaults in prod.
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint: object storage settings. Empty bucket disables archiving.
//   - RedisAddr / RedisPassword / RedisDB: compare cache. Empty address disables caching.
//   - CompareCacheTTL: lifetime of cached comparison results.
//   - RateLimitPerMinute / RateLimitBurst: per-client token bucket.
//   - MaxUploadSize: request body cap in bytes.
//   - AllowedOrigins: CORS origins; empty or "*" allows all.
//   - LogLevel: debug, info, warn or error.
//   - TracingEndpoint: OTLP/gRPC collector address. Empty disables export.
//   - HardenedHashing: protect new documents with Argon2id instead of the
//     fixed-salt SHA-256 digest. Such files only unlock with pdtools.
//   - ShutdownTimeout: grace period for in-flight requests.
type Config struct {
	EndpointAddrHTTP   string
	EndpointAddrGRPC   string
	DatabaseDSN        string
	SecretKey          string
	S3RootUser         string
	S3RootPassword     string
	S3Bucket           string
	S3Region           string
	S3BaseEndpoint     string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	CompareCacheTTL    time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
	MaxUploadSize      int64
	AllowedOrigins     []string
	LogLevel           string
	TracingEndpoint    string
	HardenedHashing    bool
	ShutdownTimeout    time.Duration
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey is insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = ""
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.RedisAddr = ""
	c.RedisDB = 0
	c.CompareCacheTTL = 10 * time.Minute
	c.RateLimitPerMinute = 60
	c.RateLimitBurst = 10
	c.MaxUploadSize = 50 << 20
	c.AllowedOrigins = []string{"*"}
	c.LogLevel = "info"
	c.TracingEndpoint = ""
	c.HardenedHashing = false
	c.ShutdownTimeout = 10 * time.Second
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the environment, an optional JSON file and finally command-line
// flags. Malformed input panics, as the server cannot start without it.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
