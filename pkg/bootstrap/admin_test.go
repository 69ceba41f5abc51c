package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/aquaticgg/krepo/pkg/auth"
	"github.com/aquaticgg/krepo/pkg/models"
	"github.com/aquaticgg/krepo/pkg/repositories/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAccounts(t *testing.T, store *repotest.Store) *auth.Accounts {
	t.Helper()
	jwt, err := auth.NewTokenService("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)
	return auth.NewAccounts(store.Accounts(), jwt, auth.NewHasher(bcrypt.MinCost), auth.NewRevocations(store.Revoked()))
}

func TestEnsureAdminCreatesFirstAccount(t *testing.T) {
	store := repotest.New()
	accounts := newAccounts(t, store)
	ctx := context.Background()

	created, err := EnsureAdmin(ctx, store.Accounts(), accounts, "admin", "s3cret")
	require.NoError(t, err)
	assert.True(t, created)

	acct, err := store.Accounts().GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{models.RoleUser, models.RoleAdmin}, acct.Roles)

	_, err = accounts.Login(ctx, "admin", "s3cret")
	assert.NoError(t, err)
}

func TestEnsureAdminGeneratesPassword(t *testing.T) {
	store := repotest.New()
	accounts := newAccounts(t, store)

	created, err := EnsureAdmin(context.Background(), store.Accounts(), accounts, "root", "")
	require.NoError(t, err)
	assert.True(t, created)

	acct, err := store.Accounts().GetByUsername(context.Background(), "root")
	require.NoError(t, err)
	assert.NotEmpty(t, acct.PasswordHash)
	assert.True(t, acct.IsAdmin())
}

func TestEnsureAdminSkipsPopulatedDatabase(t *testing.T) {
	store := repotest.New()
	accounts := newAccounts(t, store)
	ctx := context.Background()

	_, err := accounts.Create(ctx, "alice", "pw", nil)
	require.NoError(t, err)

	created, err := EnsureAdmin(ctx, store.Accounts(), accounts, "admin", "s3cret")
	require.NoError(t, err)
	assert.False(t, created)

	n, err := store.Accounts().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
