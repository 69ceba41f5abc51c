// Package storage is the only code allowed to touch a physical backend. Objects are
// addressed by a repository-qualified key built with Key.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	// ErrNotExist is returned by Get when no object is stored under the key.
	ErrNotExist = errors.New("object does not exist")
	// ErrIncompleteUpload is returned by Put when the stream ends before the declared length.
	ErrIncompleteUpload = errors.New("upload ended before the declared length")
	// ErrOutsideRoot is returned when a key would resolve outside the backend root.
	ErrOutsideRoot = errors.New("key resolves outside the storage root")
)

// Provider is implemented by every storage backend.
type Provider interface {
	// Put stores exactly length bytes read from r under key, replacing any previous object.
	Put(ctx context.Context, key string, r io.Reader, length int64) error
	Get(ctx context.Context, key string) (*Object, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Delete is best effort and reports whether an object was removed.
	Delete(ctx context.Context, key string) bool
	// Usage is the total size in bytes of every stored object.
	Usage(ctx context.Context) (int64, error)
	Close() error
}

// Object is an open stored object. Callers must close it.
type Object struct {
	io.ReadCloser
	Size int64
}

// Failure wraps a backend error with the operation and key it happened on.
type Failure struct {
	Op   string
	Key  string
	Code string
	Err  error
}

func (f *Failure) Error() string {
	if f.Code != "" {
		return fmt.Sprintf("storage %s %q: %s: %v", f.Op, f.Key, f.Code, f.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", f.Op, f.Key, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Key builds the storage key of relPath inside repository.
func Key(repository, relPath string) string {
	return repository + "/" + strings.TrimLeft(relPath, "/")
}

var repositoryNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateRepositoryName checks that name can be used as the first segment of a key.
func ValidateRepositoryName(name string) error {
	if !repositoryNameRegex.MatchString(name) {
		return fmt.Errorf("invalid repository name %q", name)
	}
	if strings.Trim(name, ".") == "" {
		return fmt.Errorf("invalid repository name %q", name)
	}

	return nil
}

// ValidateRelativePath rejects any caller supplied path that could escape its
// repository or that does not name a single file unambiguously.
func ValidateRelativePath(p string) error {
	switch {
	case p == "":
		return errors.New("path is empty")
	case strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\"):
		return errors.New("path must be relative")
	case strings.ContainsRune(p, '\\'):
		return errors.New("path contains a backslash")
	case strings.ContainsRune(p, 0):
		return errors.New("path contains a NUL byte")
	}

	for _, segment := range strings.Split(p, "/") {
		switch segment {
		case "":
			return errors.New("path contains an empty segment")
		case ".", "..":
			return fmt.Errorf("path contains a %q segment", segment)
		}
	}

	return nil
}
