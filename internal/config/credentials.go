package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment keys holding the streaming session tokens.
const (
	EnvCST           = "CAPITAL_CST"
	EnvSecurityToken = "CAPITAL_SECURITY_TOKEN"
)

// ErrMissingCredentials is returned when either session token is unset.
var ErrMissingCredentials = errors.New("config: session credentials not set")

// Credentials are the two opaque session tokens attached to streaming control messages.
type Credentials struct {
	CST           string
	SecurityToken string
}

// LoadCredentials reads the session tokens from the environment. When envPath names an
// existing file it is parsed first and its values take precedence, so an external process
// can rotate tokens by rewriting the file.
func LoadCredentials(envPath string) (Credentials, error) {
	values := map[string]string{}
	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			parsed, err := godotenv.Read(envPath)
			if err != nil {
				return Credentials{}, fmt.Errorf("read %s: %w", envPath, err)
			}
			values = parsed
		}
	}
	lookup := func(key string) string {
		if v, ok := values[key]; ok && v != "" {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(os.Getenv(key))
	}
	creds := Credentials{CST: lookup(EnvCST), SecurityToken: lookup(EnvSecurityToken)}
	if creds.CST == "" || creds.SecurityToken == "" {
		return creds, ErrMissingCredentials
	}
	return creds, nil
}
