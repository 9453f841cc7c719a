package uptime

import (
	"strings"
	"time"
)

// LoadLocation resolves an IANA timezone name. An empty name yields fallback.
// A name that cannot be loaded also yields fallback, with substituted set so
// the caller can surface a warning.
func LoadLocation(name string, fallback *time.Location) (loc *time.Location, substituted bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback, false
	}
	if name == "Local" {
		return fallback, true
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fallback, true
	}
	return loc, false
}
