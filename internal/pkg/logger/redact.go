package logger

import "strings"

// RedactSecret masks a credential for safe logging.
// "AbCdEf123456" → "Ab***"
// Values of 4 characters or fewer are fully masked: "abcd" → "***"
func RedactSecret(secret string) string {
	secret = strings.TrimSpace(secret)
	if len(secret) > 4 {
		return secret[:2] + "***"
	}
	return "***"
}
