package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

type SessionConfig struct {
	File string `koanf:"file"`
}

const defaultSessionFileName = "storefront-session.json"

// String returns a string representation of the SessionConfig.
func (c *SessionConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Session ---\n")
	b.WriteString(fmt.Sprintf("  file: %s\n", c.File))
	return b.String()
}

func (c *SessionConfig) Validate() error {
	if c.File == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = os.TempDir()
		}
		log.Println("Using default value for session file")
		c.File = filepath.Join(dir, defaultSessionFileName)
	}
	return nil
}
