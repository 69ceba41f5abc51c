package auth

import (
	"context"
	"testing"
	"time"

	"github.com/aquaticgg/krepo/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		header string
		scheme Scheme
	}{
		{"", SchemeNone},
		{"   ", SchemeNone},
		{"Bearer abc.def.ghi", SchemeBearer},
		{"bearer abc.def.ghi", SchemeBearer},
		{"BEARER abc", SchemeBearer},
		{"Bearer", SchemeMalformed},
		{basicHeader("alice", "secret"), SchemeBasicPassword},
		{"basic " + basicHeader("alice", "secret")[6:], SchemeBasicPassword},
		{basicHeader("alice", "tk_0123"), SchemeBasicToken},
		{basicHeader("alice", "pass:with:colons"), SchemeBasicPassword},
		{"Basic !!!not-base64!!!", SchemeMalformed},
		{"Basic " + "YWxpY2U=", SchemeMalformed},
		{basicHeader("", "secret"), SchemeMalformed},
		{"Digest username=alice", SchemeUnsupported},
		{"Macaroon root=abc", SchemeUnsupported},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.scheme, Classify(tc.header).Scheme, tc.header)
	}

	creds := Classify(basicHeader("alice", "pass:with:colons"))
	assert.Equal(t, "alice", creds.Username)
	assert.Equal(t, "pass:with:colons", creds.Secret)
}

func TestResolveAnonymous(t *testing.T) {
	f := newFixture(t)

	identity := f.resolve(t, "")
	assert.Equal(t, Anonymous, identity.Kind)
}

func TestResolveBasicPassword(t *testing.T) {
	f := newFixture(t)
	f.createAccount(t, "admin", "correctpw", models.RoleUser, models.RoleAdmin)

	identity := f.resolve(t, basicHeader("admin", "correctpw"))
	require.Equal(t, BearerPrincipal, identity.Kind)
	assert.Equal(t, "admin", identity.Username)
	assert.ElementsMatch(t, []string{"USER", "ADMIN"}, identity.Roles)

	identity = f.resolve(t, basicHeader("admin", "wrongpw"))
	assert.Equal(t, rejectedIdentity(RejectInvalid), identity)

	identity = f.resolve(t, basicHeader("nobody", "correctpw"))
	assert.Equal(t, rejectedIdentity(RejectInvalid), identity)
}

func TestResolveBearer(t *testing.T) {
	f := newFixture(t)
	f.createAccount(t, "alice", "pw")

	session, err := f.accounts.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	identity := f.resolve(t, "Bearer "+session.Token)
	require.Equal(t, BearerPrincipal, identity.Kind)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, []string{"USER"}, identity.Roles)

	identity = f.resolve(t, "Bearer "+session.Token+"x")
	assert.Equal(t, rejectedIdentity(RejectInvalid), identity)
}

func TestResolveBearerPicksUpCurrentRoles(t *testing.T) {
	f := newFixture(t)
	f.createAccount(t, "alice", "pw")
	session, err := f.accounts.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	_, err = f.accounts.Promote(context.Background(), "alice")
	require.NoError(t, err)

	identity := f.resolve(t, "Bearer "+session.Token)
	assert.ElementsMatch(t, []string{"USER", "ADMIN"}, identity.Roles)
}

func TestResolveBearerAfterLogout(t *testing.T) {
	f := newFixture(t)
	f.createAccount(t, "alice", "pw")
	session, err := f.accounts.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	require.NoError(t, f.accounts.Logout(context.Background(), session.Token))

	identity := f.resolve(t, "Bearer "+session.Token)
	assert.Equal(t, rejectedIdentity(RejectRevoked), identity)

	// the signature and expiry are still fine on their own
	_, err = f.jwt.Parse(session.Token)
	assert.NoError(t, err)
}

func TestResolveBearerForDeletedAccount(t *testing.T) {
	f := newFixture(t)
	f.createAccount(t, "alice", "pw")
	session, err := f.accounts.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	require.NoError(t, f.accounts.Delete(context.Background(), "alice"))

	identity := f.resolve(t, "Bearer "+session.Token)
	assert.Equal(t, rejectedIdentity(RejectInvalid), identity)
}

func TestResolveExpiredBearer(t *testing.T) {
	f := newFixture(t)
	f.createAccount(t, "alice", "pw")

	f.jwt.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	session, err := f.accounts.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	f.jwt.now = time.Now

	identity := f.resolve(t, "Bearer "+session.Token)
	assert.Equal(t, rejectedIdentity(RejectInvalid), identity)
}

func TestResolveDeployToken(t *testing.T) {
	f := newFixture(t)
	f.createAccount(t, "alice", "pw")
	_, secret, err := f.tokens.Create(context.Background(), "alice", "ci-token", []string{"read"})
	require.NoError(t, err)

	identity := f.resolve(t, basicHeader("alice", secret))
	require.Equal(t, TokenPrincipal, identity.Kind)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, []string{"READ"}, identity.Permissions)

	identity = f.resolve(t, basicHeader("alice", "tk_00000000000000000000000000000000"))
	assert.Equal(t, rejectedIdentity(RejectInvalid), identity)

	identity = f.resolve(t, basicHeader("bob", secret))
	assert.Equal(t, rejectedIdentity(RejectInvalid), identity)
}

func TestResolveDeployTokenIsNotAPassword(t *testing.T) {
	f := newFixture(t)
	f.createAccount(t, "alice", "tk_looks_like_a_token")

	identity := f.resolve(t, basicHeader("alice", "tk_looks_like_a_token"))
	assert.Equal(t, rejectedIdentity(RejectInvalid), identity)
}

func TestResolveMalformedAndUnsupported(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, rejectedIdentity(RejectMalformed), f.resolve(t, "Basic %%%"))
	assert.Equal(t, rejectedIdentity(RejectUnsupported), f.resolve(t, "Negotiate abc"))
}
