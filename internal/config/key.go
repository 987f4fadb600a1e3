package config

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/coursemix/coursesync/internal/store"
)

// KeyInfo is what can be read from a Supabase API key without verifying it
type KeyInfo struct {
	Role      string
	ExpiresAt time.Time
}

// InspectSupabaseKey decodes the claims of a Supabase JWT API key. The signature is not checked;
// only the project can do that.
func InspectSupabaseKey(key string) (*KeyInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(key, claims); err != nil {
		return nil, fmt.Errorf("supabase key is not a JWT: %w", err)
	}

	info := &KeyInfo{}
	if role, ok := claims["role"].(string); ok {
		info.Role = role
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("reading supabase key expiry: %w", err)
	}
	if exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}

// KeyWarnings returns human-readable problems with the configured Supabase key.
// Non-supabase drivers never produce warnings.
func (c *Config) KeyWarnings(now time.Time) []string {
	if c.Store.Driver != store.DriverSupabase || c.Store.SupabaseKey == "" {
		return nil
	}

	info, err := InspectSupabaseKey(c.Store.SupabaseKey)
	if err != nil {
		return []string{err.Error()}
	}

	var warnings []string
	if !info.ExpiresAt.IsZero() && now.After(info.ExpiresAt) {
		warnings = append(warnings, fmt.Sprintf("supabase key expired at %s", info.ExpiresAt.UTC().Format(time.RFC3339)))
	}
	if info.Role == "anon" {
		warnings = append(warnings, "supabase key has the anon role; inserts depend on row level security policies")
	}
	return warnings
}
