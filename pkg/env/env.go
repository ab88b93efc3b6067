package env

import "os"

// Prefix is the envconfig namespace the app configuration loads under.
// Ad-hoc lookups honour it so every knob can be set the same way.
const Prefix = "BREWSHOP_"

// Get returns the value of the given environment variable or a fallback.
// The Prefix-qualified form wins over the bare name.
func Get(key, fallback string) string {
	if val := os.Getenv(Prefix + key); val != "" {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
