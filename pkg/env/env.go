package env

import "os"

// Get reads an environment variable, returning fallback when it is unset
// or empty. Used for process-level overrides like PORT.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
