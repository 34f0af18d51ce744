package domain

import "fmt"

// ErrorCategory classifies a failure for recovery purposes.
type ErrorCategory string

const (
	CategoryNetwork        ErrorCategory = "network"
	CategoryTimeout        ErrorCategory = "timeout"
	CategoryServer         ErrorCategory = "server"
	CategoryRateLimit      ErrorCategory = "rate-limit"
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryClient         ErrorCategory = "client"
	CategoryUnknown        ErrorCategory = "unknown"
)

// Categories lists every category in a stable order.
var Categories = []ErrorCategory{
	CategoryNetwork,
	CategoryTimeout,
	CategoryServer,
	CategoryRateLimit,
	CategoryAuthentication,
	CategoryClient,
	CategoryUnknown,
}

// ParseCategory converts a configuration string into an ErrorCategory.
// "auth" and "rate_limit" are accepted as aliases.
func ParseCategory(s string) (ErrorCategory, error) {
	switch s {
	case "auth":
		return CategoryAuthentication, nil
	case "rate_limit", "ratelimit":
		return CategoryRateLimit, nil
	}
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown error category %q", s)
}

// IsAuth reports whether the category represents rejected credentials.
func (c ErrorCategory) IsAuth() bool {
	return c == CategoryAuthentication
}
