// Package session holds the process-wide bearer credential with an
// explicit initialize-on-load / clear-on-logout lifecycle. The resource
// client receives it as a token refresh hook instead of reading ambient
// global state.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// TokenSource identifies where a token was resolved from.
type TokenSource string

const (
	// TokenSourceEnv is CARGO_ADMIN_TOKEN.
	TokenSourceEnv TokenSource = "cargo_admin_token"
	// TokenSourceSharedEnv is CARGO_TOKEN.
	TokenSourceSharedEnv TokenSource = "cargo_token"
	// TokenSourceConfigFile is ~/.cargo-realm/config.yaml auth.token.
	TokenSourceConfigFile TokenSource = "config_file"
	// TokenSourceLogin is a token installed by an explicit Login call.
	TokenSourceLogin TokenSource = "login"
)

// ErrNotAuthenticated is returned when no credential is loaded.
var ErrNotAuthenticated = errors.New("session: not authenticated")

type configFile struct {
	Auth struct {
		Token string `yaml:"token"`
	} `yaml:"auth"`
}

// Options controls token resolution during Load.
type Options struct {
	AllowConfigFileToken bool
	ConfigFilePath       string
}

// Session is the mutable process-wide credential holder.
type Session struct {
	mu     sync.RWMutex
	token  string
	source TokenSource
}

// New returns an empty, unauthenticated session.
func New() *Session {
	return &Session{}
}

// Load resolves a token using deterministic precedence:
// 1) CARGO_ADMIN_TOKEN
// 2) CARGO_TOKEN
// 3) config file auth.token (only when AllowConfigFileToken=true)
// Resolving nothing leaves the session unauthenticated without error.
func (s *Session) Load(opts Options) error {
	if token := strings.TrimSpace(os.Getenv("CARGO_ADMIN_TOKEN")); token != "" {
		s.install(token, TokenSourceEnv)
		return nil
	}
	if token := strings.TrimSpace(os.Getenv("CARGO_TOKEN")); token != "" {
		s.install(token, TokenSourceSharedEnv)
		return nil
	}

	if !opts.AllowConfigFileToken {
		return nil
	}

	configPath := expandPath(defaultIfEmpty(strings.TrimSpace(opts.ConfigFilePath), "~/.cargo-realm/config.yaml"))
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("reading config file token source: %w", err)
	}

	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("decoding config file token source: %w", err)
	}

	token := strings.TrimSpace(cfg.Auth.Token)
	if token == "" {
		return nil
	}

	s.install(token, TokenSourceConfigFile)
	return nil
}

// Login installs a freshly issued bearer token.
func (s *Session) Login(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("session: token is required")
	}
	s.install(token, TokenSourceLogin)
	return nil
}

// Clear drops the credential on logout.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.source = ""
}

// Authenticated reports whether a credential is loaded.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Source returns where the current credential came from.
func (s *Session) Source() TokenSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// TokenRefresh returns the hook injected into the resource client config.
func (s *Session) TokenRefresh() func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		_ = ctx

		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.token == "" {
			return "", ErrNotAuthenticated
		}
		return s.token, nil
	}
}

func (s *Session) install(token string, source TokenSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.source = source
}

func defaultIfEmpty(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~/"))
	}
	return filepath.Clean(path)
}
