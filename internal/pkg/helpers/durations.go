package helpers

import (
	"strings"
	"time"

	"github.com/yigit/madrasa/internal/pkg/logger"
)

// ParseDuration reads a configured duration such as "15s" or "720h".
// An empty value means "not configured" and yields fallback silently; a value
// that does not parse or is not positive also yields fallback, with a warning.
func ParseDuration(value string, fallback time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err == nil && d > 0 {
		return d
	}
	log := logger.Component("config")
	ev := log.Warn().Str("value", value).Dur("fallback", fallback)
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("Ignoring configured duration")
	return fallback
}
