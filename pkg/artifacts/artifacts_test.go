package artifacts

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aquaticgg/krepo/pkg/auth"
	"github.com/aquaticgg/krepo/pkg/errs"
	"github.com/aquaticgg/krepo/pkg/models"
	"github.com/aquaticgg/krepo/pkg/repositories/repotest"
	"github.com/aquaticgg/krepo/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	anonymous  = auth.AnonymousPrincipal()
	admin      = auth.NewPrincipal(auth.Identity{Kind: auth.BearerPrincipal, Username: "admin", Roles: []string{models.RoleUser, models.RoleAdmin}})
	user       = auth.NewPrincipal(auth.Identity{Kind: auth.BearerPrincipal, Username: "alice", Roles: []string{models.RoleUser}})
	readToken  = auth.NewPrincipal(auth.Identity{Kind: auth.TokenPrincipal, Username: "alice", Permissions: []string{models.PermissionRead}})
	writeToken = auth.NewPrincipal(auth.Identity{Kind: auth.TokenPrincipal, Username: "alice", Permissions: []string{models.PermissionWrite}})
)

type fixture struct {
	repos   *repotest.Repos
	fs      *storage.FileSystem
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fsys, err := storage.NewFileSystem(filepath.Join(t.TempDir(), "storage"))
	require.NoError(t, err)
	repos := repotest.New().Repos()

	return &fixture{repos: repos, fs: fsys, service: NewService(repos, fsys)}
}

func (f *fixture) upload(t *testing.T, p auth.Principal, repo, path, content string) error {
	t.Helper()
	return f.service.Upload(context.Background(), p, repo, path, strings.NewReader(content), int64(len(content)))
}

func (f *fixture) read(t *testing.T, p auth.Principal, repo, path string) string {
	t.Helper()
	obj, err := f.service.Get(context.Background(), p, repo, path)
	require.NoError(t, err)
	defer obj.Close()
	b, err := io.ReadAll(obj)
	require.NoError(t, err)
	return string(b)
}

func TestUploadThenGet(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.upload(t, admin, "releases", "lib.jar", "0123456789"))
	assert.Equal(t, "0123456789", f.read(t, anonymous, "releases", "lib.jar"))

	repo, err := f.repos.Get(context.Background(), "releases")
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityPublic, repo.Visibility)
}

func TestUploadOverwrites(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.upload(t, admin, "releases", "a/b.txt", "first"))
	require.NoError(t, f.upload(t, writeToken, "releases", "a/b.txt", "second"))

	assert.Equal(t, "second", f.read(t, anonymous, "releases", "a/b.txt"))
}

func TestUploadPermissions(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.upload(t, anonymous, "releases", "lib.jar", "x"), errs.ErrAuthenticationRequired)
	assert.ErrorIs(t, f.upload(t, user, "releases", "lib.jar", "x"), errs.ErrAccessDenied)
	assert.ErrorIs(t, f.upload(t, readToken, "releases", "lib.jar", "x"), errs.ErrAccessDenied)

	exists, err := f.fs.Exists(context.Background(), "releases/lib.jar")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.repos.Get(context.Background(), "releases")
	assert.Error(t, err)
}

func TestReadTokenCanReadPublic(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.upload(t, admin, "releases", "lib.jar", "bytes"))

	assert.Equal(t, "bytes", f.read(t, readToken, "releases", "lib.jar"))
}

func TestUploadRejectsBadPaths(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"../escape.txt", "/etc/passwd", "a//b", "a/../../b", ""} {
		err := f.upload(t, admin, "releases", path, "x")
		assert.ErrorIs(t, err, errs.ErrInvalidPath, path)
	}
	assert.ErrorIs(t, f.upload(t, admin, "..", "a.txt", "x"), errs.ErrInvalidPath)
	assert.ErrorIs(t, f.upload(t, admin, "api", "a.txt", "x"), errs.ErrInvalidPath)

	total, err := f.fs.Usage(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUploadLength(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.service.Upload(ctx, admin, "releases", "a.txt", strings.NewReader("abc"), -1)
	assert.Equal(t, errs.KindLengthRequired, errs.KindOf(err))

	err = f.service.Upload(ctx, admin, "releases", "a.txt", strings.NewReader(""), 0)
	assert.ErrorIs(t, err, errs.ErrBadRequest)

	err = f.service.Upload(ctx, admin, "releases", "a.txt", strings.NewReader("abc"), 10)
	assert.ErrorIs(t, err, errs.ErrBadRequest)

	err = f.service.Upload(ctx, admin, "releases", "a.txt", strings.NewReader("abcdef"), 3)
	require.NoError(t, err)
	assert.Equal(t, "abc", f.read(t, admin, "releases", "a.txt"))
}

// brokenRepos fails to register new repositories.
type brokenRepos struct {
	*repotest.Repos
}

func (brokenRepos) EnsureExists(context.Context, string) (bool, error) {
	return false, errors.New("connection reset")
}

func TestUploadStoresNothingWhenRegistrationFails(t *testing.T) {
	f := newFixture(t)
	service := NewService(brokenRepos{f.repos}, f.fs)

	err := service.Upload(context.Background(), admin, "releases", "lib.jar", strings.NewReader("0123456789"), 10)
	require.Error(t, err)
	assert.Equal(t, errs.KindInternal, errs.KindOf(err))

	exists, err := f.fs.Exists(context.Background(), storage.Key("releases", "lib.jar"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPrivateRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repos.Put("secrets", models.VisibilityPrivate)
	require.NoError(t, f.upload(t, admin, "secrets", "file.txt", "classified"))

	_, err := f.service.Get(ctx, anonymous, "secrets", "file.txt")
	assert.ErrorIs(t, err, errs.ErrAuthenticationRequired)
	assert.ErrorIs(t, f.service.Exists(ctx, anonymous, "secrets", "file.txt"), errs.ErrAuthenticationRequired)

	for _, p := range []auth.Principal{user, readToken, writeToken, admin} {
		assert.Equal(t, "classified", f.read(t, p, "secrets", "file.txt"))
		assert.NoError(t, f.service.Exists(ctx, p, "secrets", "file.txt"))
	}

	_, err = f.service.Get(ctx, user, "secrets", "missing.txt")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestHiddenRepositoryIsReadableButNotListed(t *testing.T) {
	f := newFixture(t)
	f.repos.Put("internal", models.VisibilityHidden)
	f.repos.Put("releases", models.VisibilityPublic)
	f.repos.Put("secrets", models.VisibilityPrivate)
	require.NoError(t, f.upload(t, admin, "internal", "a.txt", "abc"))

	assert.Equal(t, "abc", f.read(t, anonymous, "internal", "a.txt"))

	listed, err := f.service.ListRepositories(context.Background(), anonymous)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "releases", listed[0].Name)

	listed, err = f.service.ListRepositories(context.Background(), readToken)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "releases", listed[0].Name)
	assert.Equal(t, "secrets", listed[1].Name)
}

func TestMissingRepositoryIsNotFoundForEveryone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, p := range []auth.Principal{anonymous, user, admin} {
		_, err := f.service.Get(ctx, p, "nowhere", "a.txt")
		assert.ErrorIs(t, err, errs.ErrNotFound)
		assert.ErrorIs(t, f.service.Exists(ctx, p, "nowhere", "a.txt"), errs.ErrNotFound)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.upload(t, admin, "releases", "a.txt", "abc"))

	assert.ErrorIs(t, f.service.Delete(ctx, readToken, "releases", "a.txt"), errs.ErrAccessDenied)
	require.NoError(t, f.service.Delete(ctx, writeToken, "releases", "a.txt"))
	assert.ErrorIs(t, f.service.Delete(ctx, writeToken, "releases", "a.txt"), errs.ErrNotFound)
	assert.ErrorIs(t, f.service.Exists(ctx, anonymous, "releases", "a.txt"), errs.ErrNotFound)
}

func TestUsage(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.upload(t, admin, "releases", "a.txt", "abc"))
	require.NoError(t, f.upload(t, admin, "snapshots", "b.txt", "0123456789"))

	total, err := f.service.Usage(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, int64(13), total)

	_, err = f.service.Usage(context.Background(), user)
	assert.ErrorIs(t, err, errs.ErrAccessDenied)
	_, err = f.service.Usage(context.Background(), anonymous)
	assert.ErrorIs(t, err, errs.ErrAuthenticationRequired)
}
