package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/jwalitptl/innoguard/internal/model"
	apperrors "github.com/jwalitptl/innoguard/pkg/errors"
)

// FileStore is the terminal host's local storage: one YAML file holding the
// token and role keys. The id argument is ignored; there is a single session
// per file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(_ context.Context, _ string) (*model.Session, error) {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewNoSession()
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	return fromEntries(map[string]string{
		KeyToken: v.GetString(KeyToken),
		KeyRole:  v.GetString(KeyRole),
	})
}

func (s *FileStore) Save(_ context.Context, _ string, sess *model.Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	for k, val := range toEntries(sess) {
		v.Set(k, val)
	}
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return os.Chmod(s.path, 0o600)
}
