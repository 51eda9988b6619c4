package httpx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactURLSecrets(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"api key parameter",
			"request to https://api.example.com/v1?key=sk-abc123 failed",
			"request to https://api.example.com/v1?key=[REDACTED] failed",
		},
		{
			"token parameter",
			"GET https://host/path?token=ghp_secret&page=2",
			"GET https://host/path?token=[REDACTED]&page=2",
		},
		{
			"access token parameter",
			"url=https://host/cb?access_token=abc",
			"url=https://host/cb?access_token=[REDACTED]",
		},
		{"no secrets", "plain error message", "plain error message"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactURLSecrets(tt.in))
		})
	}
}

func TestTruncateForLogging(t *testing.T) {
	short := "short response"
	assert.Equal(t, short, TruncateForLogging(short))

	long := strings.Repeat("x", MaxLoggedResponseLength+50)
	got := TruncateForLogging(long)
	assert.True(t, strings.HasPrefix(got, strings.Repeat("x", MaxLoggedResponseLength)))
	assert.Contains(t, got, "truncated, total length=250 bytes")
}

func TestRedactCredential(t *testing.T) {
	redacting := NewDefaultLogger(LogLevelInfo, LogFormatHuman, true)
	assert.Equal(t, "[REDACTED-6789]", redacting.RedactCredential("sk-123456789"))
	assert.Equal(t, "[REDACTED]", redacting.RedactCredential("abcd"))
	assert.Equal(t, "[REDACTED]", redacting.RedactCredential(""))

	passthrough := NewDefaultLogger(LogLevelInfo, LogFormatHuman, false)
	assert.Equal(t, "sk-123456789", passthrough.RedactCredential("sk-123456789"))
}
