package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/yndnr/aci-go/internal/core/domain"
	"github.com/yndnr/aci-go/internal/storage"
	"github.com/yndnr/aci-go/pkg/idtoken"
	"github.com/yndnr/aci-go/pkg/token"
)

// ConfigReader reads items with a given identity. storage.Engine
// implements it.
type ConfigReader interface {
	Get(ctx context.Context, db, key string, id domain.Identity) (any, error)
}

// FederatedVerifier validates an identity-provider token and returns its
// claims. idtoken.Verifier implements it.
type FederatedVerifier interface {
	Verify(ctx context.Context, token string) (*idtoken.Claims, error)
}

// AuthConfig holds configuration for AuthService.
type AuthConfig struct {
	// Issuers lists accepted federated issuers. Empty accepts any issuer
	// the verifier accepts.
	Issuers []string

	// AllowedOrganizations lists accepted organization claims. Empty
	// rejects every federated token.
	AllowedOrganizations []string

	Logger *slog.Logger
}

// AuthService resolves credentials to identities.
type AuthService struct {
	config   ConfigReader
	verifier FederatedVerifier
	issuers  map[string]struct{}
	orgs     map[string]struct{}
	logger   *slog.Logger
}

// NewAuthService creates an AuthService. verifier may be nil, in which
// case every federated attempt fails.
func NewAuthService(config ConfigReader, verifier FederatedVerifier, cfg *AuthConfig) *AuthService {
	if cfg == nil {
		cfg = &AuthConfig{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		config:   config,
		verifier: verifier,
		issuers:  toSet(cfg.Issuers),
		orgs:     toSet(cfg.AllowedOrganizations),
		logger:   logger.With("component", "auth"),
	}
}

// Static checks (id, presented) against the a_users table:
//
//	{"<id>": {"tokens": ["<credential>", ...]}, ...}
//
// Credentials may be plaintext or hashed; see package token.
func (s *AuthService) Static(ctx context.Context, id, presented string) (domain.Identity, error) {
	if id == "" {
		return domain.NotAuthed, domain.ErrStaticUserNotFound
	}

	v, err := s.config.Get(ctx, storage.ConfigDatabase, storage.ConfigStaticUsers, domain.Backend)
	if err != nil {
		if ctx.Err() != nil {
			return domain.NotAuthed, ctx.Err()
		}
		s.logger.Warn("static user table unavailable", "error", err)
		return domain.NotAuthed, domain.ErrStaticUserNotFound
	}

	table, _ := v.(map[string]any)
	entry, ok := table[id]
	if !ok {
		return domain.NotAuthed, domain.ErrStaticUserNotFound
	}

	if presented == "" || !token.MatchAny(presented, credentials(entry)) {
		s.logger.Info("static auth failed", "id", id)
		return domain.NotAuthed, domain.ErrStaticTokenIncorrect
	}

	s.logger.Info("static auth succeeded", "id", id)
	return domain.Identity{Kind: domain.KindService, Principal: id}, nil
}

// Federated verifies an identity token and applies the issuer and
// organization checks.
func (s *AuthService) Federated(ctx context.Context, rawToken string) (domain.Identity, error) {
	if s.verifier == nil {
		return domain.NotAuthed, domain.ErrIdentityFailure.WithDetails("federated auth is not configured")
	}

	claims, err := s.verifier.Verify(ctx, rawToken)
	if err != nil {
		if ctx.Err() != nil {
			return domain.NotAuthed, ctx.Err()
		}
		s.logger.Info("federated token rejected", "error", err)
		return domain.NotAuthed, domain.ErrIdentityFailure.WithCause(err)
	}

	if len(s.issuers) > 0 {
		if _, ok := s.issuers[claims.Issuer]; !ok {
			s.logger.Info("federated issuer rejected", "issuer", claims.Issuer)
			return domain.NotAuthed, domain.ErrIdentityFailure.WithDetails("wrong issuer")
		}
	}
	if _, ok := s.orgs[claims.Organization]; !ok {
		s.logger.Info("federated organization rejected", "org", claims.Organization)
		return domain.NotAuthed, domain.ErrOrganizationNotAllowed.WithDetails(claims.Organization)
	}

	principal := claims.Principal()
	if principal == "" {
		return domain.NotAuthed, domain.ErrIdentityFailure.WithDetails("token names no principal")
	}
	s.logger.Info("federated auth succeeded", "principal", principal)
	return domain.Identity{Kind: domain.KindFederated, Principal: principal}, nil
}

// credentials extracts the token list of an a_users entry. A bare string
// or list is accepted as well as the {"tokens": [...]} form.
func credentials(entry any) []string {
	switch e := entry.(type) {
	case map[string]any:
		return credentials(e["tokens"])
	case []any:
		out := make([]string, 0, len(e))
		for _, t := range e {
			if s, ok := t.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{e}
	default:
		return nil
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
