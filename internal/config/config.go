// Package config holds the configuration of the storefront CLI and the devshop backend.
package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/config/configloader"
)

var (
	_ configloader.Validator = (*Storefront)(nil)
	_ configloader.Validator = (*Devshop)(nil)
)

// Storefront configures the CLI client.
type Storefront struct {
	Backend    config.HTTPClientConfig `koanf:"backend"`
	Resilience config.ResilienceConfig `koanf:"resilience"`
	Session    config.SessionConfig    `koanf:"session"`
	Log        config.LogConfig        `koanf:"log"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
}

func (c *Storefront) String() string {
	var b strings.Builder
	b.WriteString(c.Backend.String())
	b.WriteString(c.Resilience.String())
	b.WriteString(c.Session.String())
	b.WriteString("\n--- Observability & Logging ---\n")
	b.WriteString(fmt.Sprintf("  log.level: %s\n", c.Log.Level))
	b.WriteString(c.Telemetry.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Storefront) Validate() error {
	for _, v := range []configloader.Validator{&c.Backend, &c.Resilience, &c.Session, &c.Log, &c.Telemetry} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Devshop configures the reference backend server.
type Devshop struct {
	HTTPServer config.HTTPConfig      `koanf:"server"`
	Auth       config.AuthConfig      `koanf:"auth"`
	Log        config.LogConfig       `koanf:"log"`
	PProf      config.PProfConfig     `koanf:"pprof"`
	Shutdown   config.ShutdownConfig  `koanf:"shutdown"`
	Telemetry  config.TelemetryConfig `koanf:"telemetry"`
	// SeedCatalog fills the store with the default products on start.
	SeedCatalog bool `koanf:"seedcatalog"`
}

func (c *Devshop) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Auth.String())
	b.WriteString("\n--- Observability & Logging ---\n")
	b.WriteString(fmt.Sprintf("  log.level: %s\n", c.Log.Level))
	b.WriteString(fmt.Sprintf("  pprof.enabled: %t\n", c.PProf.Enabled))
	b.WriteString(fmt.Sprintf("  pprof.address: %s\n", c.PProf.Addr))
	b.WriteString(c.Telemetry.String())
	b.WriteString("\n--- Application Behavior ---\n")
	b.WriteString(fmt.Sprintf("  shutdown.timeout: %s\n", c.Shutdown.Timeout))
	b.WriteString(fmt.Sprintf("  seedcatalog: %t\n", c.SeedCatalog))
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Devshop) Validate() error {
	for _, v := range []configloader.Validator{&c.HTTPServer, &c.Auth, &c.Log, &c.PProf, &c.Shutdown, &c.Telemetry} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
