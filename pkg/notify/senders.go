// Package notify covers the outbound side of the task core: who gets told about a task
// and which sender addresses an organization may use.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"slices"
	"strings"
)

var (
	ErrInvalidSender    = errors.New("invalid sender address")
	ErrSenderNotAllowed = errors.New("sender address not allowed")
)

// AllowedSenderSource loads an organization's sender allowlist.
type AllowedSenderSource interface {
	AllowedSenders(ctx context.Context, orgID string) ([]string, error)
}

// SenderPolicy checks sender addresses against the per-organization allowlist. An entry
// is either a full address or a domain written as "@example.com" or "example.com".
type SenderPolicy struct {
	source AllowedSenderSource
	logger *slog.Logger
}

func NewSenderPolicy(source AllowedSenderSource, logger *slog.Logger) *SenderPolicy {
	return &SenderPolicy{
		source: source,
		logger: logger.With("module", "notify"),
	}
}

// Validate returns nil when from may be used by orgID. An empty from falls back to
// the platform sender and is always accepted.
func (p *SenderPolicy) Validate(ctx context.Context, orgID, from string) error {
	if strings.TrimSpace(from) == "" {
		return nil
	}

	address, err := mail.ParseAddress(from)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidSender, from)
	}

	allowed, err := p.source.AllowedSenders(ctx, orgID)
	if err != nil {
		return fmt.Errorf("failed to load allowed senders of %s: %w", orgID, err)
	}

	if !Allows(allowed, address.Address) {
		p.logger.WarnContext(ctx, "sender rejected", "org_id", orgID, "from", address.Address)

		return fmt.Errorf("%w: %s", ErrSenderNotAllowed, address.Address)
	}

	return nil
}

// Allows reports whether address matches an allowlist entry. Matching ignores case.
func Allows(allowlist []string, address string) bool {
	address = strings.ToLower(strings.TrimSpace(address))

	_, domain, ok := strings.Cut(address, "@")
	if !ok || domain == "" {
		return false
	}

	return slices.ContainsFunc(allowlist, func(entry string) bool {
		entry = strings.ToLower(strings.TrimSpace(entry))

		switch {
		case entry == "":
			return false
		case strings.HasPrefix(entry, "@"):
			return entry[1:] == domain
		case strings.Contains(entry, "@"):
			return entry == address
		default:
			return entry == domain
		}
	})
}
