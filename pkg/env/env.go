package env

import (
	"os"
	"strings"
)

// Prefix namespaces the terminal's variables so several counters can share a host profile.
const Prefix = "POS_"

// Get returns POS_<key>, then <key>, then fallback. Blank values count as unset.
func Get(key, fallback string) string {
	for _, name := range []string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
