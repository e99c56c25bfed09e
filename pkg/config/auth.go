package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthConfig configures token issuing in the reference backend.
type AuthConfig struct {
	JWTSecret string        `koanf:"jwtsecret"`
	TokenTTL  time.Duration `koanf:"tokenttl"`
	Admin     struct {
		Email    string `koanf:"email"`
		Password string `koanf:"password"`
	} `koanf:"admin"`
}

// String returns a string representation of the AuthConfig. Secrets are masked.
func (c *AuthConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Auth ---\n")
	b.WriteString(fmt.Sprintf("  jwtsecret: %s\n", mask(c.JWTSecret)))
	b.WriteString(fmt.Sprintf("  tokenttl: %s\n", c.TokenTTL))
	b.WriteString(fmt.Sprintf("  admin.email: %s\n", c.Admin.Email))
	b.WriteString(fmt.Sprintf("  admin.password: %s\n", mask(c.Admin.Password)))
	return b.String()
}

func (c *AuthConfig) Validate() error {
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwtsecret must be at least 16 characters")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.tokenttl must be greater than 0")
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		return fmt.Errorf("auth.admin.email and auth.admin.password must be set together")
	}
	return nil
}

func mask(s string) string {
	if s == "" {
		return "<not configured>"
	}
	return "****"
}
