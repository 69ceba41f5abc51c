package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// incomingDir holds uploads in flight. Repository names start with a letter or
// digit, so it never shadows a repository.
const incomingDir = ".incoming"

// FileSystem stores objects as regular files below a root directory.
type FileSystem struct {
	root     string
	realRoot string
}

var _ Provider = (*FileSystem)(nil)

// NewFileSystem makes root absolute and creates it when missing.
func NewFileSystem(root string) (*FileSystem, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, &Failure{Op: "init", Key: abs, Err: err}
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, &Failure{Op: "init", Key: abs, Err: err}
	}

	logrus.Infof("Using filesystem storage at %s", abs)

	return &FileSystem{root: abs, realRoot: resolved}, nil
}

func (f *FileSystem) Root() string {
	return f.root
}

// resolve maps key to a path and checks that the path stays strictly inside the
// root, both as written and after resolving symlinks of the deepest existing parent.
func (f *FileSystem) resolve(key string) (string, error) {
	p := filepath.Join(f.root, filepath.FromSlash(key))
	if !within(f.root, p) {
		return "", ErrOutsideRoot
	}

	existing := filepath.Dir(p)
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", err
	}
	if resolved != f.realRoot && !within(f.realRoot, resolved) {
		return "", ErrOutsideRoot
	}

	if info, err := os.Lstat(p); err == nil && info.Mode()&os.ModeSymlink != 0 {
		target, err := filepath.EvalSymlinks(p)
		if err != nil || !within(f.realRoot, target) {
			return "", ErrOutsideRoot
		}
	}

	return p, nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (f *FileSystem) Put(ctx context.Context, key string, r io.Reader, length int64) error {
	p, err := f.resolve(key)
	if err != nil {
		return &Failure{Op: "put", Key: key, Err: err}
	}

	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &Failure{Op: "put", Key: key, Err: err}
	}
	incoming := filepath.Join(f.root, incomingDir)
	if err := os.MkdirAll(incoming, 0o755); err != nil {
		return &Failure{Op: "put", Key: key, Err: err}
	}

	tmp, err := os.CreateTemp(incoming, "upload-*")
	if err != nil {
		return &Failure{Op: "put", Key: key, Err: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	n, err := io.CopyN(tmp, &contextReader{ctx: ctx, r: r}, length)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			logrus.Warnf("Upload of %s stopped after %d of %d bytes", key, n, length)
			return ErrIncompleteUpload
		}
		if ctx.Err() != nil {
			return ErrIncompleteUpload
		}
		return &Failure{Op: "put", Key: key, Err: err}
	}

	if err := tmp.Sync(); err != nil {
		return &Failure{Op: "put", Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &Failure{Op: "put", Key: key, Err: err}
	}
	if err := os.Rename(tmpName, p); err != nil {
		return &Failure{Op: "put", Key: key, Err: err}
	}
	committed = true

	return nil
}

func (f *FileSystem) Get(_ context.Context, key string) (*Object, error) {
	p, err := f.resolve(key)
	if err != nil {
		return nil, &Failure{Op: "get", Key: key, Err: err}
	}

	file, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, &Failure{Op: "get", Key: key, Err: err}
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, &Failure{Op: "get", Key: key, Err: err}
	}
	if !info.Mode().IsRegular() {
		_ = file.Close()
		return nil, ErrNotExist
	}

	return &Object{ReadCloser: file, Size: info.Size()}, nil
}

func (f *FileSystem) Exists(_ context.Context, key string) (bool, error) {
	p, err := f.resolve(key)
	if err != nil {
		return false, &Failure{Op: "exists", Key: key, Err: err}
	}

	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &Failure{Op: "exists", Key: key, Err: err}
	}

	return info.Mode().IsRegular(), nil
}

func (f *FileSystem) Delete(_ context.Context, key string) bool {
	p, err := f.resolve(key)
	if err != nil {
		logrus.Warnf("Refusing to delete %s: %v", key, err)
		return false
	}

	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	if err := os.Remove(p); err != nil {
		logrus.Errorf("Failed to delete %s: %v", key, err)
		return false
	}

	return true
}

func (f *FileSystem) Usage(ctx context.Context) (int64, error) {
	var total int64
	incoming := filepath.Join(f.root, incomingDir)
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() && p == incoming {
			return fs.SkipDir
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, &Failure{Op: "usage", Key: "", Err: err}
	}

	return total, nil
}

func (f *FileSystem) Close() error {
	return nil
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
