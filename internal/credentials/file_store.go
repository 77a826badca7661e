package credentials

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// FileStore guarda el token en un archivo <dir>/<key> con modo 0600.
type FileStore struct {
	dir string
	key string
	mu  sync.Mutex
}

func NewFileStore(dir, key string) *FileStore {
	if key == "" {
		key = DefaultKey
	}
	return &FileStore{dir: dir, key: key}
}

// Path es la ruta del archivo de credencial.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, s.key)
}

func (s *FileStore) Load(_ context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if len(b) == 0 {
		return "", false, nil
	}
	return string(b), true, nil
}

func (s *FileStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return s.Clear(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	return writeFile(s.Path(), []byte(token), 0o600)
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// writeFile escribe via archivo temporal y luego reemplaza el destino con rename.
func writeFile(path string, b []byte, mode os.FileMode) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

var _ Store = (*FileStore)(nil)
