package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/aquaticgg/krepo/pkg/repositories"
)

type Scheme int

const (
	SchemeNone Scheme = iota
	SchemeBearer
	SchemeBasicPassword
	SchemeBasicToken
	SchemeMalformed
	SchemeUnsupported
)

func (s Scheme) String() string {
	switch s {
	case SchemeNone:
		return "none"
	case SchemeBearer:
		return "bearer"
	case SchemeBasicPassword:
		return "basic_password"
	case SchemeBasicToken:
		return "basic_token"
	case SchemeMalformed:
		return "malformed"
	case SchemeUnsupported:
		return "unsupported"
	}
	return "unknown"
}

// Credentials is the classified content of an Authorization header.
type Credentials struct {
	Scheme   Scheme
	Token    string
	Username string
	Secret   string
}

// Classify sorts an Authorization header into exactly one scheme without
// consulting any store. The scheme keyword is case-insensitive.
func Classify(header string) Credentials {
	header = strings.TrimSpace(header)
	if header == "" {
		return Credentials{Scheme: SchemeNone}
	}

	keyword, rest, _ := strings.Cut(header, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(keyword) {
	case "bearer":
		if rest == "" {
			return Credentials{Scheme: SchemeMalformed}
		}
		return Credentials{Scheme: SchemeBearer, Token: rest}
	case "basic":
		decoded, err := base64.StdEncoding.DecodeString(rest)
		if err != nil {
			return Credentials{Scheme: SchemeMalformed}
		}
		username, secret, ok := strings.Cut(string(decoded), ":")
		if !ok || username == "" {
			return Credentials{Scheme: SchemeMalformed}
		}
		if strings.HasPrefix(secret, DeployTokenPrefix) {
			return Credentials{Scheme: SchemeBasicToken, Username: username, Secret: secret}
		}
		return Credentials{Scheme: SchemeBasicPassword, Username: username, Secret: secret}
	default:
		return Credentials{Scheme: SchemeUnsupported}
	}
}

// Resolver turns credentials into an Identity. It only reads from its stores.
type Resolver struct {
	accounts    repositories.IAccountRepository
	tokens      repositories.IDeployTokenRepository
	revocations *Revocations
	jwt         *TokenService
	hasher      *Hasher
}

func NewResolver(accounts repositories.IAccountRepository, tokens repositories.IDeployTokenRepository,
	revocations *Revocations, jwt *TokenService, hasher *Hasher) *Resolver {
	return &Resolver{
		accounts:    accounts,
		tokens:      tokens,
		revocations: revocations,
		jwt:         jwt,
		hasher:      hasher,
	}
}

// Resolve classifies header and verifies it. The error is only set when a store
// could not be consulted; bad credentials come back as a Rejected identity.
func (r *Resolver) Resolve(ctx context.Context, header string) (Identity, Credentials, error) {
	creds := Classify(header)

	var (
		identity Identity
		err      error
	)
	switch creds.Scheme {
	case SchemeNone:
		identity = anonymousIdentity()
	case SchemeBearer:
		identity, err = r.resolveBearer(ctx, creds.Token)
	case SchemeBasicToken:
		identity, err = r.resolveDeployToken(ctx, creds.Username, creds.Secret)
	case SchemeBasicPassword:
		identity, err = r.resolvePassword(ctx, creds.Username, creds.Secret)
	case SchemeMalformed:
		identity = rejectedIdentity(RejectMalformed)
	default:
		identity = rejectedIdentity(RejectUnsupported)
	}

	return identity, creds, err
}

func (r *Resolver) resolveBearer(ctx context.Context, tokenString string) (Identity, error) {
	revoked, err := r.revocations.IsRevoked(ctx, tokenString)
	if err != nil {
		return Identity{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return rejectedIdentity(RejectRevoked), nil
	}

	claims, err := r.jwt.Parse(tokenString)
	if err != nil {
		return rejectedIdentity(RejectInvalid), nil
	}

	acct, err := r.accounts.GetByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return rejectedIdentity(RejectInvalid), nil
		}
		return Identity{}, fmt.Errorf("load account: %w", err)
	}

	return bearerIdentity(acct.Username, acct.Roles), nil
}

func (r *Resolver) resolveDeployToken(ctx context.Context, username, secret string) (Identity, error) {
	acct, err := r.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return rejectedIdentity(RejectInvalid), nil
		}
		return Identity{}, fmt.Errorf("load account: %w", err)
	}

	tokens, err := r.tokens.ListByOwner(ctx, acct.ID)
	if err != nil {
		return Identity{}, fmt.Errorf("load deploy tokens: %w", err)
	}

	for _, t := range tokens {
		if r.hasher.Verify(t.TokenHash, secret) {
			return tokenIdentity(acct.Username, t.Permissions), nil
		}
	}

	return rejectedIdentity(RejectInvalid), nil
}

func (r *Resolver) resolvePassword(ctx context.Context, username, password string) (Identity, error) {
	acct, err := r.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return rejectedIdentity(RejectInvalid), nil
		}
		return Identity{}, fmt.Errorf("load account: %w", err)
	}

	if !r.hasher.Verify(acct.PasswordHash, password) {
		return rejectedIdentity(RejectInvalid), nil
	}

	return bearerIdentity(acct.Username, acct.Roles), nil
}
