package application

import (
	"context"
	"time"

	"github.com/ericfisherdev/orgsync/internal/domain/model"
	"github.com/ericfisherdev/orgsync/internal/domain/port/driven"
)

// CredentialCheck is the outcome of minting a token for one organization.
type CredentialCheck struct {
	OrgName   string
	OK        bool
	Kind      string
	Error     string
	ExpiresAt time.Time
}

// VerifyService checks that every registered organization can authenticate.
type VerifyService struct {
	registry driven.OrgRegistry
	issuer   driven.TokenIssuer
}

// NewVerifyService creates a VerifyService.
func NewVerifyService(registry driven.OrgRegistry, issuer driven.TokenIssuer) *VerifyService {
	return &VerifyService{registry: registry, issuer: issuer}
}

// VerifyAll mints and discards one token per organization, in registry order.
func (s *VerifyService) VerifyAll(ctx context.Context) []CredentialCheck {
	names := s.registry.Names()
	out := make([]CredentialCheck, 0, len(names))

	for _, name := range names {
		check := CredentialCheck{OrgName: name}

		org, err := s.registry.Lookup(name)
		if err == nil {
			err = org.Validate()
		}
		if err == nil {
			var tok model.AccessToken
			tok, err = s.issuer.IssueInstallationToken(ctx, org)
			check.ExpiresAt = tok.ExpiresAt
		}

		if err != nil {
			check.Kind = model.ErrorKind(err)
			check.Error = err.Error()
		} else {
			check.OK = true
		}
		out = append(out, check)
	}

	return out
}
