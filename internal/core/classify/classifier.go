// Package classify maps arbitrary errors onto the shared error taxonomy.
//
// This package contains:
//   - Classifier: the replaceable classification strategy
//   - PatternClassifier: message substring / status code matching
//   - TypedClassifier: errors.As / errors.Is based classification
//   - GRPCClassifier: gRPC status codes
//   - Chain: first non-unknown answer wins
package classify

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"

	"github.com/vietddude/streamguard/internal/core/domain"
)

// Classifier assigns an error category to an error.
type Classifier interface {
	Classify(err error) domain.ErrorCategory
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(err error) domain.ErrorCategory

// Classify implements Classifier.
func (f ClassifierFunc) Classify(err error) domain.ErrorCategory {
	return f(err)
}

type rule struct {
	category domain.ErrorCategory
	codes    *regexp.Regexp
	phrases  []string
}

// PatternClassifier classifies by matching the error message. Status codes
// are matched before phrases; within each pass rules are evaluated in order
// and the first match wins.
type PatternClassifier struct {
	rules []rule
}

// NewPatternClassifier returns a classifier with the default rule set.
func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{
		rules: []rule{
			{
				category: domain.CategoryRateLimit,
				codes:    regexp.MustCompile(`\b429\b`),
				phrases:  []string{"rate limit", "too many requests", "quota exceeded", "throttl"},
			},
			{
				category: domain.CategoryAuthentication,
				codes:    regexp.MustCompile(`\b(401|403)\b`),
				phrases: []string{
					"unauthorized", "unauthenticated", "forbidden",
					"invalid token", "token expired", "authentication",
				},
			},
			{
				category: domain.CategoryTimeout,
				phrases: []string{
					"timeout", "timed out", "deadline exceeded", "etimedout",
				},
			},
			{
				category: domain.CategoryNetwork,
				phrases: []string{
					"network", "connection refused", "econnrefused", "connection reset",
					"econnreset", "no such host", "enotfound", "dns", "broken pipe",
					"connection closed", "connection lost", "unreachable",
				},
			},
			{
				category: domain.CategoryServer,
				codes:    regexp.MustCompile(`\b50[0234]\b`),
				phrases: []string{
					"internal server error", "bad gateway", "service unavailable",
					"gateway timeout",
				},
			},
			{
				category: domain.CategoryClient,
				codes:    regexp.MustCompile(`\b(400|404)\b`),
				phrases:  []string{"bad request", "not found", "malformed", "invalid argument"},
			},
		},
	}
}

// Classify implements Classifier.
func (c *PatternClassifier) Classify(err error) domain.ErrorCategory {
	if err == nil {
		return domain.CategoryUnknown
	}

	s := err.Error()
	sLower := strings.ToLower(s)

	for _, r := range c.rules {
		if r.codes != nil && r.codes.MatchString(s) {
			return r.category
		}
	}
	for _, r := range c.rules {
		for _, p := range r.phrases {
			if strings.Contains(sLower, p) {
				return r.category
			}
		}
	}
	return domain.CategoryUnknown
}

// TypedClassifier classifies errors that carry their own type information.
type TypedClassifier struct{}

// Classify implements Classifier.
func (TypedClassifier) Classify(err error) domain.ErrorCategory {
	if err == nil {
		return domain.CategoryUnknown
	}

	var connErr *domain.ConnectionError
	if errors.As(err, &connErr) && connErr.Category != "" {
		return connErr.Category
	}

	var sc domain.StatusCoder
	if errors.As(err, &sc) {
		if cat := domain.CategoryForStatus(sc.StatusCode()); cat != domain.CategoryUnknown {
			return cat
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.CategoryTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.CategoryTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.CategoryNetwork
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return domain.CategoryNetwork
	}

	return domain.CategoryUnknown
}

// Chain tries each classifier in turn and returns the first answer that is
// not CategoryUnknown.
type Chain []Classifier

// Classify implements Classifier.
func (ch Chain) Classify(err error) domain.ErrorCategory {
	for _, c := range ch {
		if cat := c.Classify(err); cat != domain.CategoryUnknown {
			return cat
		}
	}
	return domain.CategoryUnknown
}

// Default returns the classifier used when none is configured: typed errors
// first, then gRPC status codes, then message patterns.
func Default() Classifier {
	return Chain{TypedClassifier{}, GRPCClassifier{}, NewPatternClassifier()}
}
