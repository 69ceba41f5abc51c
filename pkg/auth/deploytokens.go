package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aquaticgg/krepo/pkg/errs"
	"github.com/aquaticgg/krepo/pkg/models"
	"github.com/aquaticgg/krepo/pkg/repositories"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DeployTokenPrefix marks a basic-auth secret as a deploy token rather than a password.
const DeployTokenPrefix = "tk_"

// DeployTokens issues, resets and removes deploy tokens. Raw secrets are only
// ever returned from Create and Reset.
type DeployTokens struct {
	accounts repositories.IAccountRepository
	tokens   repositories.IDeployTokenRepository
	hasher   *Hasher
}

func NewDeployTokens(accounts repositories.IAccountRepository, tokens repositories.IDeployTokenRepository, hasher *Hasher) *DeployTokens {
	return &DeployTokens{accounts: accounts, tokens: tokens, hasher: hasher}
}

// newSecret is tk_ followed by the 32 hex digits of a random UUID, which carries
// 122 bits read from crypto/rand.
func newSecret() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return DeployTokenPrefix + strings.ReplaceAll(id.String(), "-", ""), nil
}

// NormalizePermissions upper-cases and dedupes permissions and rejects anything
// outside READ and WRITE.
func NormalizePermissions(permissions []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, p := range permissions {
		p = strings.ToUpper(strings.TrimSpace(p))
		switch p {
		case models.PermissionRead, models.PermissionWrite:
		default:
			return nil, errs.BadRequest("unknown permission %q", p)
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, errs.BadRequest("at least one permission is required")
	}

	return out, nil
}

func (d *DeployTokens) owner(ctx context.Context, username string) (*models.Account, error) {
	if err := checkUsername(username); err != nil {
		return nil, err
	}
	acct, err := d.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, errs.NotFound("account %q not found", username)
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	return acct, nil
}

func (d *DeployTokens) Create(ctx context.Context, username, name string, permissions []string) (*models.DeployToken, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", errs.BadRequest("token name is required")
	}
	perms, err := NormalizePermissions(permissions)
	if err != nil {
		return nil, "", err
	}

	acct, err := d.owner(ctx, username)
	if err != nil {
		return nil, "", err
	}

	secret, err := newSecret()
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}
	hash, err := d.hasher.Hash(secret)
	if err != nil {
		return nil, "", fmt.Errorf("hash token: %w", err)
	}

	token := &models.DeployToken{
		AccountID:   acct.ID,
		Name:        name,
		TokenHash:   hash,
		Permissions: perms,
	}
	if err := d.tokens.Create(ctx, token); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, "", errs.Conflict("token %q already exists", name)
		}
		return nil, "", fmt.Errorf("create token: %w", err)
	}

	logrus.Infof("Created deploy token %q for %s with %v", name, username, perms)

	return token, secret, nil
}

// Reset replaces the hash of an existing token, invalidating its old secret.
func (d *DeployTokens) Reset(ctx context.Context, username, name string) (string, error) {
	acct, err := d.owner(ctx, username)
	if err != nil {
		return "", err
	}

	token, err := d.tokens.GetByOwnerAndName(ctx, acct.ID, name)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", errs.NotFound("token %q not found", name)
		}
		return "", fmt.Errorf("load token: %w", err)
	}

	secret, err := newSecret()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	hash, err := d.hasher.Hash(secret)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}

	if err := d.tokens.UpdateHash(ctx, token.ID, hash); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", errs.NotFound("token %q not found", name)
		}
		return "", fmt.Errorf("reset token: %w", err)
	}

	logrus.Infof("Reset deploy token %q for %s", name, username)

	return secret, nil
}

func (d *DeployTokens) List(ctx context.Context, username string) ([]models.DeployToken, error) {
	acct, err := d.owner(ctx, username)
	if err != nil {
		return nil, err
	}

	tokens, err := d.tokens.ListByOwner(ctx, acct.ID)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return tokens, nil
}

// Delete removes the token when username owns it. Tokens owned by someone else
// are left alone without an error.
func (d *DeployTokens) Delete(ctx context.Context, username string, id uint) error {
	acct, err := d.owner(ctx, username)
	if err != nil {
		return err
	}

	deleted, err := d.tokens.DeleteOwned(ctx, acct.ID, id)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if deleted {
		logrus.Infof("Deleted deploy token %d of %s", id, username)
	}

	return nil
}
