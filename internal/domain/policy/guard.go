package policy

import (
	"fmt"
	"strings"

	apperrors "github.com/yanqian/ai-travel-planner/pkg/errors"
)

// Config lists destination restrictions.
type Config struct {
	BlockedDestinations []string
	AllowedRegions      []string
}

// Guard rejects text that mentions a blocked destination.
type Guard struct {
	blocked []string
	allowed []string
}

// NewGuard builds a guard from config, dropping blank entries.
func NewGuard(cfg Config) *Guard {
	return &Guard{
		blocked: compact(cfg.BlockedDestinations),
		allowed: compact(cfg.AllowedRegions),
	}
}

// Check fails with a policy_violation error when text mentions a blocked destination
// (case-insensitive substring match).
func (g *Guard) Check(text string) error {
	if g == nil {
		return nil
	}
	lowered := strings.ToLower(text)
	for _, name := range g.blocked {
		if strings.Contains(lowered, strings.ToLower(name)) {
			return apperrors.Wrap(apperrors.CodePolicyViolation, fmt.Sprintf("Trips to %s are not allowed by policy.", name), nil)
		}
	}
	return nil
}

// BlockedDestinations returns a copy of the blocked list.
func (g *Guard) BlockedDestinations() []string {
	return append([]string(nil), g.blocked...)
}

// AllowedRegions returns a copy of the allowed region list.
func (g *Guard) AllowedRegions() []string {
	return append([]string(nil), g.allowed...)
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
