package auth

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/aquaticgg/krepo/pkg/models"
	"github.com/aquaticgg/krepo/pkg/repositories/repotest"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	store       *repotest.Store
	hasher      *Hasher
	jwt         *TokenService
	revocations *Revocations
	accounts    *Accounts
	tokens      *DeployTokens
	resolver    *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := repotest.New()
	hasher := NewHasher(bcrypt.MinCost)
	jwtService, err := NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)
	revocations := NewRevocations(store.Revoked())

	return &fixture{
		store:       store,
		hasher:      hasher,
		jwt:         jwtService,
		revocations: revocations,
		accounts:    NewAccounts(store.Accounts(), jwtService, hasher, revocations),
		tokens:      NewDeployTokens(store.Accounts(), store.DeployTokens(), hasher),
		resolver:    NewResolver(store.Accounts(), store.DeployTokens(), revocations, jwtService, hasher),
	}
}

func (f *fixture) createAccount(t *testing.T, username, password string, roles ...string) *models.Account {
	t.Helper()
	acct, err := f.accounts.Create(context.Background(), username, password, roles)
	require.NoError(t, err)
	return acct
}

func (f *fixture) resolve(t *testing.T, header string) Identity {
	t.Helper()
	identity, _, err := f.resolver.Resolve(context.Background(), header)
	require.NoError(t, err)
	return identity
}

func basicHeader(username, secret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+secret))
}
