package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abgdnv/storefront/pkg/config/configloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storefrontYAML = `
backend:
  baseurl: http://localhost:8080
  timeout: 5s
resilience:
  circuitbreaker:
    consecutivefailures: 3
    errorratepercent: 50
    opentimeout: 30s
session:
  file: /tmp/storefront-test-session.json
log:
  level: info
telemetry:
  enabled: false
`

const devshopYAML = `
server:
  port: 8080
  maxHeaderBytes: 1048576
  timeout:
    read: 5s
    write: 10s
    idle: 60s
    readHeader: 2s
auth:
  jwtsecret: 0123456789abcdef0123
  tokenttl: 24h
  admin:
    email: admin@example.com
    password: admin-pass
log:
  level: debug
pprof:
  enabled: false
shutdown:
  timeout: 5s
seedcatalog: true
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestStorefront_Load(t *testing.T) {
	// given
	path := writeFile(t, "config.yaml", storefrontYAML)
	t.Setenv("STOREFRONT_BACKEND_BASEURL", "http://shop.internal:9000")

	// when
	cfg, err := configloader.LoadWith[*Storefront]("storefront", configloader.Options{ConfigFile: path, EnvFile: path + ".missing"})

	// then
	require.NoError(t, err)
	assert.Equal(t, "http://shop.internal:9000", cfg.Backend.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, uint32(3), cfg.Resilience.CircuitBreaker.ConsecutiveFailures)
	assert.Equal(t, "backend-cb", cfg.Resilience.CircuitBreaker.Name)
	assert.Contains(t, cfg.String(), "shop.internal")
}

func TestDevshop_Load(t *testing.T) {
	path := writeFile(t, "config.yaml", devshopYAML)

	cfg, err := configloader.LoadWith[*Devshop]("devshop", configloader.Options{ConfigFile: path, EnvFile: path + ".missing"})

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPServer.Port)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.True(t, cfg.SeedCatalog)
	assert.NotContains(t, cfg.String(), "admin-pass")
	assert.NotContains(t, cfg.String(), "0123456789abcdef0123")
}

func TestDevshop_ValidateShortSecret(t *testing.T) {
	path := writeFile(t, "config.yaml", devshopYAML)
	t.Setenv("DEVSHOP_AUTH_JWTSECRET", "short")

	_, err := configloader.LoadWith[*Devshop]("devshop", configloader.Options{ConfigFile: path, EnvFile: path + ".missing"})

	assert.ErrorContains(t, err, "jwtsecret")
}
