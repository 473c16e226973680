// Package redaction scrubs credential-shaped strings from outbound text.
// Review comments quote source excerpts, and a diff under review can
// contain a committed secret; nothing leaves the process unredacted.
package redaction

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Engine performs regex-based secret detection and redaction.
type Engine struct {
	patterns []*regexp.Regexp
}

// NewEngine creates an engine with the default secret patterns.
func NewEngine() *Engine {
	return &Engine{patterns: defaultPatterns()}
}

// Redact replaces every detected secret with a stable placeholder. The
// placeholder is derived from the secret's hash, so repeated occurrences
// of the same secret collapse to the same marker.
func (e *Engine) Redact(input string) (string, error) {
	placeholders := make(map[string]string)

	for _, pattern := range e.patterns {
		for _, match := range pattern.FindAllString(input, -1) {
			if _, seen := placeholders[match]; seen {
				continue
			}
			placeholders[match] = placeholder(match)
		}
	}

	result := input
	for secret, mark := range placeholders {
		result = strings.ReplaceAll(result, secret, mark)
	}
	return result, nil
}

// IsRedacted reports whether the content already carries redaction markers.
func (e *Engine) IsRedacted(content string) bool {
	return strings.Contains(content, "<REDACTED:")
}

func placeholder(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return fmt.Sprintf("<REDACTED:%s>", hex.EncodeToString(sum[:])[:8])
}

// defaultPatterns covers the token shapes most likely to show up in a diff
// excerpt: provider API keys, cloud credentials, and key material.
func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// OpenAI-style API keys
		`sk-[a-zA-Z0-9]{20,}`,
		// Anthropic API keys
		`sk-ant-[a-zA-Z0-9\-]{20,}`,
		// AWS access key IDs
		`AKIA[0-9A-Z]{16}`,
		// AWS secret keys assigned near an "aws" identifier
		`aws.{0,20}?['\"][0-9a-zA-Z/+]{40}['\"]`,
		// GitHub tokens
		`gh[posr]_[a-zA-Z0-9]{20,}`,
		// Google API keys
		`AIza[0-9A-Za-z\-_]{35}`,
		// JWTs
		`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`,
		// PEM private key blocks
		`-----BEGIN\s+(?:RSA|EC|OPENSSH|DSA|ENCRYPTED)\s+PRIVATE\s+KEY-----[\s\S]*?-----END\s+(?:RSA|EC|OPENSSH|DSA|ENCRYPTED)\s+PRIVATE\s+KEY-----`,
		// Slack tokens
		`xox[baprs]-[a-zA-Z0-9\-]{10,}`,
		// Bearer tokens in authorization headers
		`Bearer\s+[a-zA-Z0-9_\-\.]+`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}
