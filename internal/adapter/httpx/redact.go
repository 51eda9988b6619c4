package httpx

import (
	"fmt"
	"regexp"
)

// MaxLoggedResponseLength is the maximum length of response text included
// in logs. Longer responses are truncated so user code and secrets do not
// land in log aggregators.
const MaxLoggedResponseLength = 200

// TruncateForLogging safely truncates a response string for logging.
func TruncateForLogging(response string) string {
	if len(response) <= MaxLoggedResponseLength {
		return response
	}
	return response[:MaxLoggedResponseLength] + fmt.Sprintf("... [truncated, total length=%d bytes]", len(response))
}

var urlSecretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(key=)([^&"\s]+)`),
	regexp.MustCompile(`(apiKey=)([^&"\s]+)`),
	regexp.MustCompile(`(api_key=)([^&"\s]+)`),
	regexp.MustCompile(`(token=)([^&"\s]+)`),
	regexp.MustCompile(`(access_token=)([^&"\s]+)`),
}

// RedactURLSecrets redacts API keys and tokens from URLs in error messages
// so credentials passed as query parameters never reach the logs.
func RedactURLSecrets(text string) string {
	if text == "" {
		return text
	}
	for _, p := range urlSecretPatterns {
		text = p.ReplaceAllString(text, "${1}[REDACTED]")
	}
	return text
}
