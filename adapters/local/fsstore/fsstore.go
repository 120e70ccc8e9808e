package fsstore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Abraxas-365/siteqa/storage"
)

var _ storage.DataStore = (*FSStore)(nil)

// FSStore keeps objects as files below a root directory. Keys may contain
// forward slashes but may not escape the root.
type FSStore struct {
	root string
}

func New(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, storage.NewStorageError("New", root, err, storage.ErrCodeInternal, "failed to create root directory")
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) path(op, key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", storage.NewStorageError(op, key, nil, storage.ErrCodeInvalidArgument, "invalid key")
	}
	return filepath.Join(s.root, clean), nil
}

// Put writes to a temporary file and renames it into place, so readers never
// observe a partially written object.
func (s *FSStore) Put(ctx context.Context, key string, data io.Reader, options ...storage.PutOption) error {
	p, err := s.path("Put", key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return storage.NewStorageError("Put", key, err, storage.ErrCodeInternal, "failed to create directory")
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return storage.NewStorageError("Put", key, err, storage.ErrCodeInternal, "failed to create file")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return storage.NewStorageError("Put", key, err, storage.ErrCodeInternal, "failed to write file")
	}
	if err := tmp.Close(); err != nil {
		return storage.NewStorageError("Put", key, err, storage.ErrCodeInternal, "failed to write file")
	}
	if err := ctx.Err(); err != nil {
		return storage.NewStorageError("Put", key, err, storage.ErrCodeInternal, "canceled")
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return storage.NewStorageError("Put", key, err, storage.ErrCodeInternal, "failed to move file into place")
	}
	return nil
}

func (s *FSStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path("Get", key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.NewStorageError("Get", key, err, storage.ErrCodeNotFound, "object not found")
		}
		return nil, storage.NewStorageError("Get", key, err, storage.ErrCodeInternal, "failed to open file")
	}
	return f, nil
}

func (s *FSStore) Delete(ctx context.Context, key string) error {
	p, err := s.path("Delete", key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storage.NewStorageError("Delete", key, err, storage.ErrCodeInternal, "failed to delete file")
	}
	return nil
}

func (s *FSStore) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var objects []storage.ObjectInfo
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, storage.ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, storage.NewStorageError("List", prefix, err, storage.ErrCodeInternal, "failed to list files")
	}
	return objects, nil
}

func (s *FSStore) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.path("Exists", key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, storage.NewStorageError("Exists", key, err, storage.ErrCodeInternal, "failed to stat file")
}
