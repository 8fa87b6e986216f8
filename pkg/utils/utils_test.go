package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInitials(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Ada Lovelace", "AL"},
		{"  grace   brewster murray hopper ", "GB"},
		{"plato", "P"},
		{"", "NA"},
		{"   ", "NA"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Initials(tt.name), "Initials(%q)", tt.name)
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "Unknown Date", FormatDate(time.Time{}))
	assert.Equal(t, "March 5, 2024", FormatDate(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)))
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("weather", "current", "51.5", "-0.12")
	b := CacheKey("weather", "current", "51.5", "-0.12")
	c := CacheKey("weather", "forecast", "51.5", "-0.12")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "weather:")
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "key=[REDACTED]&x=1", Redact("key=abc123&x=1", "abc123"))
	assert.Equal(t, "unchanged", Redact("unchanged", ""))
}
