package service

import (
	"fmt"
	"regexp"
	"strconv"

	"dustledger/internal/admission/models"
)

// denyRule names a payload pattern that always causes rejection. Matches
// are reported, never stripped, so callers see exactly what tripped.
type denyRule struct {
	name    string
	pattern *regexp.Regexp
}

var denyRules = []denyRule{
	{"markup tag", regexp.MustCompile(`<[^>]*>`)},
	{"script scheme", regexp.MustCompile(`(?i)(?:java|vb)?script\s*:`)},
	{"path traversal", regexp.MustCompile(`\.\.[/\\]`)},
	{"shell metacharacter", regexp.MustCompile("[;|&$`]")},
	{"control character", regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f]`)},
}

var locationPattern = regexp.MustCompile(`^[a-z_]+$`)

// sanitizer applies the payload denylist and per-action structural rules.
type sanitizer struct {
	maxPayloadBytes int
	maxWager        float64
}

// inspect returns a non-empty reason when the request payload is rejected.
func (s sanitizer) inspect(req models.Request) string {
	size := 0
	for field, value := range req.Payload {
		size += len(field) + len(value)
		for _, rule := range denyRules {
			if rule.pattern.MatchString(value) {
				return fmt.Sprintf("field %q contains %s", field, rule.name)
			}
		}
	}
	if s.maxPayloadBytes > 0 && size > s.maxPayloadBytes {
		return fmt.Sprintf("payload exceeds %d bytes", s.maxPayloadBytes)
	}

	if req.Action == models.ActionWager {
		if reason := s.inspectWager(req.Payload); reason != "" {
			return reason
		}
	}
	return ""
}

func (s sanitizer) inspectWager(payload map[string]string) string {
	location, ok := payload["location"]
	if !ok || !locationPattern.MatchString(location) {
		return "location must be lowercase letters and underscores"
	}
	raw, ok := payload["wager"]
	if !ok {
		return "wager amount is required"
	}
	wager, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "wager amount is not a number"
	}
	if wager <= 0 || wager > s.maxWager {
		return fmt.Sprintf("wager outside range (0, %v]", s.maxWager)
	}
	return ""
}
