package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"seconds", "15s", 15 * time.Second},
		{"hours with padding", " 720h ", 720 * time.Hour},
		{"compound", "1h30m", 90 * time.Minute},
		{"empty", "", time.Minute},
		{"not a duration", "soon", time.Minute},
		{"missing unit", "30", time.Minute},
		{"zero", "0s", time.Minute},
		{"negative", "-5m", time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDuration(tt.value, time.Minute))
		})
	}
}
