// Package artifacts serves and accepts repository files on behalf of a Principal.
// Every call validates the path, checks the repository and asks the access gate
// before the storage provider is touched.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aquaticgg/krepo/pkg/auth"
	"github.com/aquaticgg/krepo/pkg/errs"
	"github.com/aquaticgg/krepo/pkg/metrics"
	"github.com/aquaticgg/krepo/pkg/models"
	"github.com/aquaticgg/krepo/pkg/repositories"
	"github.com/aquaticgg/krepo/pkg/storage"
	"github.com/sirupsen/logrus"
)

type Service struct {
	repos    repositories.IRepoRepository
	provider storage.Provider
}

func NewService(repos repositories.IRepoRepository, provider storage.Provider) *Service {
	return &Service{repos: repos, provider: provider}
}

// ReservedRepository is the first path segment of the management API.
const ReservedRepository = "api"

func key(repository, path string) (string, error) {
	if err := storage.ValidateRepositoryName(repository); err != nil {
		return "", errs.InvalidPath("%v", err)
	}
	if strings.EqualFold(repository, ReservedRepository) {
		return "", errs.InvalidPath("repository name %q is reserved", repository)
	}
	if err := storage.ValidateRelativePath(path); err != nil {
		return "", errs.InvalidPath("%v", err)
	}
	return storage.Key(repository, path), nil
}

func denied(p auth.Principal, d auth.Decision) error {
	if d.Reason == auth.DenyAuthenticationRequired || !p.Authenticated() {
		return errs.AuthenticationRequired("authentication required")
	}
	return errs.AccessDenied("insufficient permission")
}

func storageError(err error) error {
	var failure *storage.Failure
	if errors.As(err, &failure) {
		if errors.Is(err, storage.ErrOutsideRoot) {
			return errs.Wrap(errs.KindInvalidPath, err, "path escapes the repository")
		}
		return errs.Wrap(errs.KindStorage, err, "storage backend failed")
	}
	return fmt.Errorf("storage: %w", err)
}

// readable loads the repository and checks op against its visibility. A
// missing repository is NotFound whatever the caller could have seen.
func (s *Service) readable(ctx context.Context, p auth.Principal, repository string, op auth.Operation) error {
	repo, err := s.repos.Get(ctx, repository)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return errs.NotFound("repository %q not found", repository)
		}
		return fmt.Errorf("load repository: %w", err)
	}

	if d := auth.Authorize(p.Capabilities, repo.Visibility, op); !d.Allowed {
		return denied(p, d)
	}

	return nil
}

// Get opens a stored file. The caller closes the returned object.
func (s *Service) Get(ctx context.Context, p auth.Principal, repository, path string) (*storage.Object, error) {
	k, err := key(repository, path)
	if err != nil {
		return nil, err
	}
	if err := s.readable(ctx, p, repository, auth.OpRead); err != nil {
		return nil, err
	}

	obj, err := s.provider.Get(ctx, k)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, errs.NotFound("%s not found", path)
		}
		return nil, storageError(err)
	}

	return obj, nil
}

// Exists returns nil when the file is present and NotFound when it is not.
func (s *Service) Exists(ctx context.Context, p auth.Principal, repository, path string) error {
	k, err := key(repository, path)
	if err != nil {
		return err
	}
	if err := s.readable(ctx, p, repository, auth.OpExists); err != nil {
		return err
	}

	ok, err := s.provider.Exists(ctx, k)
	if err != nil {
		return storageError(err)
	}
	if !ok {
		return errs.NotFound("%s not found", path)
	}

	return nil
}

// Upload stores exactly length bytes of body and creates the repository as
// PUBLIC when this is its first file.
func (s *Service) Upload(ctx context.Context, p auth.Principal, repository, path string, body io.Reader, length int64) error {
	if !p.Authenticated() {
		return errs.AuthenticationRequired("authentication required")
	}
	k, err := key(repository, path)
	if err != nil {
		return err
	}
	if length < 0 {
		return errs.New(errs.KindLengthRequired, "Content-Length is required")
	}
	if length == 0 {
		return errs.BadRequest("Content-Length must be greater than zero")
	}

	visibility := models.VisibilityPublic
	repo, err := s.repos.Get(ctx, repository)
	switch {
	case err == nil:
		visibility = repo.Visibility
	case !errors.Is(err, repositories.ErrNotFound):
		return fmt.Errorf("load repository: %w", err)
	}

	if d := auth.Authorize(p.Capabilities, visibility, auth.OpWrite); !d.Allowed {
		return denied(p, d)
	}

	// every stored object has a repository record
	if repo == nil {
		created, err := s.repos.EnsureExists(ctx, repository)
		if err != nil {
			return fmt.Errorf("register repository: %w", err)
		}
		if created {
			logrus.Infof("Created repository %s on first upload by %s", repository, p.Username())
		}
	}

	if err := s.provider.Put(ctx, k, io.LimitReader(body, length), length); err != nil {
		if errors.Is(err, storage.ErrIncompleteUpload) {
			return errs.BadRequest("upload ended before %d bytes were received", length)
		}
		return storageError(err)
	}
	metrics.AddUploadedBytes(length)

	logrus.Infof("%s uploaded %s (%d bytes)", p.Username(), k, length)

	return nil
}

// Delete removes a file. It needs the same permission as Upload.
func (s *Service) Delete(ctx context.Context, p auth.Principal, repository, path string) error {
	if !p.Authenticated() {
		return errs.AuthenticationRequired("authentication required")
	}
	k, err := key(repository, path)
	if err != nil {
		return err
	}

	repo, err := s.repos.Get(ctx, repository)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return errs.NotFound("repository %q not found", repository)
		}
		return fmt.Errorf("load repository: %w", err)
	}
	if d := auth.Authorize(p.Capabilities, repo.Visibility, auth.OpWrite); !d.Allowed {
		return denied(p, d)
	}

	if !s.provider.Delete(ctx, k) {
		return errs.NotFound("%s not found", path)
	}

	logrus.Infof("%s deleted %s", p.Username(), k)

	return nil
}

// ListRepositories returns the repositories p may see in a listing. HIDDEN
// repositories are never listed and PRIVATE ones only to authenticated callers.
func (s *Service) ListRepositories(ctx context.Context, p auth.Principal) ([]models.Repository, error) {
	all, err := s.repos.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}

	visible := make([]models.Repository, 0, len(all))
	for _, repo := range all {
		switch repo.Visibility {
		case models.VisibilityHidden:
			continue
		case models.VisibilityPublic:
			visible = append(visible, repo)
		default:
			if !p.Capabilities.Empty() {
				visible = append(visible, repo)
			}
		}
	}

	return visible, nil
}

// Usage is the informational total of stored bytes, for administrators only.
func (s *Service) Usage(ctx context.Context, p auth.Principal) (int64, error) {
	if !p.Authenticated() {
		return 0, errs.AuthenticationRequired("authentication required")
	}
	if !p.Capabilities.Has(models.RoleAdmin) {
		return 0, errs.AccessDenied("administrator role required")
	}

	total, err := s.provider.Usage(ctx)
	if err != nil {
		return 0, storageError(err)
	}
	return total, nil
}
