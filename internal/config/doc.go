// Package config loads coursesync settings.
//
// Values come from built-in defaults, an optional YAML file, a .env file and the environment,
// in increasing order of precedence. Environment variables use the COURSESYNC_ prefix with dots
// replaced by underscores, e.g. COURSESYNC_STORE_DRIVER. SUPABASE_URL, SUPABASE_KEY and
// DATABASE_URL are accepted as aliases.
package config
