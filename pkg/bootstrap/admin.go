package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aquaticgg/krepo/pkg/auth"
	"github.com/aquaticgg/krepo/pkg/models"
	"github.com/aquaticgg/krepo/pkg/repositories"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EnsureAdmin creates the first administrator when the database has no accounts.
// An empty password is replaced by a generated one that is logged once.
// It reports whether an account was created.
func EnsureAdmin(ctx context.Context, repo repositories.IAccountRepository, accounts *auth.Accounts, username, password string) (bool, error) {
	n, err := repo.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("bootstrap count accounts: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	generated := false
	if strings.TrimSpace(password) == "" {
		id, err := uuid.NewRandom()
		if err != nil {
			return false, fmt.Errorf("bootstrap generate password: %w", err)
		}
		password = strings.ReplaceAll(id.String(), "-", "")
		generated = true
	}

	if _, err := accounts.Create(ctx, username, password, []string{models.RoleUser, models.RoleAdmin}); err != nil {
		return false, fmt.Errorf("bootstrap create admin: %w", err)
	}

	if generated {
		logrus.Warnf("Created administrator %q with generated password %s; change it after first login", username, password)
	} else {
		logrus.Infof("Created administrator %q", username)
	}

	return true, nil
}
