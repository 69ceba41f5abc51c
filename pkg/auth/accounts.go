package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/aquaticgg/krepo/pkg/errs"
	"github.com/aquaticgg/krepo/pkg/models"
	"github.com/aquaticgg/krepo/pkg/repositories"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// usernames may not contain ':' since basic credentials split on the first one.
var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@-]*$`)

func checkUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return errs.BadRequest("invalid username %q", username)
	}
	return nil
}

// Accounts handles registration, login and the administrative account operations.
type Accounts struct {
	repo        repositories.IAccountRepository
	jwt         *TokenService
	hasher      *Hasher
	revocations *Revocations
}

func NewAccounts(repo repositories.IAccountRepository, jwt *TokenService, hasher *Hasher, revocations *Revocations) *Accounts {
	return &Accounts{repo: repo, jwt: jwt, hasher: hasher, revocations: revocations}
}

// Session is a bearer token handed out on login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Register creates a USER account and logs it in.
func (a *Accounts) Register(ctx context.Context, username, password string) (*Session, error) {
	if _, err := a.Create(ctx, username, password, nil); err != nil {
		return nil, err
	}
	return a.issue(username)
}

func (a *Accounts) Login(ctx context.Context, username, password string) (*Session, error) {
	acct, err := a.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, errs.AuthenticationFailed("invalid username or password")
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	if !a.hasher.Verify(acct.PasswordHash, password) {
		return nil, errs.AuthenticationFailed("invalid username or password")
	}

	return a.issue(acct.Username)
}

func (a *Accounts) issue(username string) (*Session, error) {
	signed, expires, err := a.jwt.Generate(username)
	if err != nil {
		return nil, err
	}
	return &Session{Token: signed, ExpiresAt: expires}, nil
}

// Logout revokes a bearer token for the rest of its lifetime.
func (a *Accounts) Logout(ctx context.Context, tokenString string) error {
	expiry, err := a.jwt.Expiry(tokenString)
	if err != nil {
		return errs.AuthenticationFailed("invalid bearer token")
	}

	return a.revocations.Revoke(ctx, tokenString, expiry)
}

// Create adds an account. Roles default to USER and must be upper case role names.
func (a *Accounts) Create(ctx context.Context, username, password string, roles []string) (*models.Account, error) {
	if err := checkUsername(username); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, errs.BadRequest("password is required")
	}

	normalized, err := normalizeRoles(roles)
	if err != nil {
		return nil, err
	}

	hash, err := a.hasher.Hash(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, errs.BadRequest("password is longer than 72 bytes")
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acct := &models.Account{
		Username:     username,
		PasswordHash: hash,
		Roles:        normalized,
	}
	if err := a.repo.Create(ctx, acct); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, errs.Conflict("account %q already exists", username)
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	logrus.Infof("Created account %s with roles %v", username, normalized)

	return acct, nil
}

func normalizeRoles(roles []string) ([]string, error) {
	if len(roles) == 0 {
		return []string{models.RoleUser}, nil
	}

	seen := map[string]bool{}
	var out []string
	for _, r := range roles {
		if !ValidRoleName(r) {
			return nil, errs.BadRequest("invalid role %q", r)
		}
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}

	return out, nil
}

// Delete removes the account together with its deploy tokens.
func (a *Accounts) Delete(ctx context.Context, username string) error {
	if err := checkUsername(username); err != nil {
		return err
	}
	if err := a.repo.Delete(ctx, username); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return errs.NotFound("account %q not found", username)
		}
		return fmt.Errorf("delete account: %w", err)
	}

	logrus.Infof("Deleted account %s", username)

	return nil
}

func (a *Accounts) Promote(ctx context.Context, username string) (*models.Account, error) {
	return a.updateRoles(ctx, username, func(roles []string) []string {
		for _, r := range roles {
			if r == models.RoleAdmin {
				return roles
			}
		}
		return append(roles, models.RoleAdmin)
	})
}

// Demote drops ADMIN. An account always keeps at least the USER role.
func (a *Accounts) Demote(ctx context.Context, username string) (*models.Account, error) {
	return a.updateRoles(ctx, username, func(roles []string) []string {
		var out []string
		for _, r := range roles {
			if r != models.RoleAdmin {
				out = append(out, r)
			}
		}
		if len(out) == 0 {
			out = []string{models.RoleUser}
		}
		return out
	})
}

func (a *Accounts) updateRoles(ctx context.Context, username string, change func([]string) []string) (*models.Account, error) {
	if err := checkUsername(username); err != nil {
		return nil, err
	}
	acct, err := a.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, errs.NotFound("account %q not found", username)
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	updated, err := a.repo.UpdateRoles(ctx, username, change(acct.Roles))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, errs.NotFound("account %q not found", username)
		}
		return nil, fmt.Errorf("update roles: %w", err)
	}

	logrus.Infof("Roles of %s are now %v", username, updated.Roles)

	return updated, nil
}

func (a *Accounts) List(ctx context.Context) ([]models.Account, error) {
	return a.repo.List(ctx)
}
