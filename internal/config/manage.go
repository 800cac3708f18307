package config

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll returns all non-secret config key/value pairs from the current config.
func ShowAll(cfg Config) []KeyInfo {
	var result []KeyInfo
	for _, s := range specs {
		if s.secret {
			continue
		}
		result = append(result, KeyInfo{
			Key:    s.key,
			EnvVar: s.env,
			Value:  fmt.Sprintf("%v", s.extract(cfg)),
		})
	}
	return result
}

// SetKey writes a config key to the file backend.
func SetKey(key, value string) error {
	b := newPlatformBackend()

	for _, s := range specs {
		if s.key != key {
			continue
		}
		if s.secret {
			return fmt.Errorf("cannot set secret %q via config; use environment variable %s", key, s.env)
		}
		switch s.typ {
		case kString:
			return b.SetString(key, value)
		case kInt:
			i, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid integer value for %s: %w", key, err)
			}
			return b.SetInt(key, i)
		}
	}

	return fmt.Errorf("unknown config key: %q", key)
}

// ValidKeys returns the list of valid non-secret config key names.
func ValidKeys() []string {
	var keys []string
	for _, s := range specs {
		if !s.secret {
			keys = append(keys, s.key)
		}
	}
	return keys
}

const localTokenKey = "local.api_token"

// LocalAPIToken returns the bearer token protecting the local HTTP API,
// generating and persisting a fresh one on first use.
func LocalAPIToken() (string, error) {
	return ensureLocalToken(newPlatformBackend())
}

func ensureLocalToken(b ConfigBackend) (string, error) {
	v, ok, err := b.GetString(localTokenKey)
	if err != nil {
		return "", fmt.Errorf("reading local API token: %w", err)
	}
	if ok && v != "" {
		return v, nil
	}

	token := uuid.New().String()
	if err := b.SetString(localTokenKey, token); err != nil {
		return "", fmt.Errorf("persisting local API token: %w", err)
	}
	return token, nil
}
