package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.EndpointAddrHTTP)
	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, "", c.DatabaseDSN)
	assert.Equal(t, "secretKey", c.SecretKey)
	assert.Equal(t, "admin", c.S3RootUser)
	assert.Equal(t, "secretpassword", c.S3RootPassword)
	assert.Equal(t, "", c.S3Bucket)
	assert.Equal(t, "us-east-1", c.S3Region)
	assert.Equal(t, "http://127.0.0.1:9000/", c.S3BaseEndpoint)
	assert.Equal(t, "", c.RedisAddr)
	assert.Equal(t, 10*time.Minute, c.CompareCacheTTL)
	assert.Equal(t, 60, c.RateLimitPerMinute)
	assert.Equal(t, 10, c.RateLimitBurst)
	assert.Equal(t, int64(50<<20), c.MaxUploadSize)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Equal(t, "info", c.LogLevel)
	assert.False(t, c.HardenedHashing)
	assert.Equal(t, 10*time.Second, c.ShutdownTimeout)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	c := LoadConfig()

	require.NotNil(t, c, "LoadConfig must not return nil")

	var want Config
	want.LoadDefaults()
	assert.Equal(t, want, *c)
}

func TestLoadConfig_LayerPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"endpoint_addr_http": ":7000",
		"log_level":          "warn",
	})

	t.Setenv("PDTOOLS_HTTP_ADDR", ":6000")
	t.Setenv("PDTOOLS_LOG_LEVEL", "debug")
	t.Setenv("PDTOOLS_DATABASE_DSN", "postgres://env")

	os.Args = []string{"testbin", "-c", path, "-l", "error"}

	c := LoadConfig()

	assert.Equal(t, ":7000", c.EndpointAddrHTTP)
	assert.Equal(t, "error", c.LogLevel)
	assert.Equal(t, "postgres://env", c.DatabaseDSN)
}
