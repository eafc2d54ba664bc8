package images

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FSStore writes images under Root/images/<subfolder>/<uuid><ext>. Paths it
// returns are slash separated and relative to Root.
type FSStore struct {
	Root string
}

func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(filepath.Join(root, "images"), 0o755); err != nil {
		return nil, fmt.Errorf("create image root: %w", err)
	}
	return &FSStore{Root: root}, nil
}

func (s *FSStore) Save(ctx context.Context, subfolder string, u *Upload) (string, error) {
	if err := Validate(u); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rel := path.Join("images", path.Clean("/" + subfolder)[1:], uuid.NewString()+Extension(u.Filename))
	full := filepath.Join(s.Root, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	if err := os.WriteFile(full, u.Data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return rel, nil
}

func (s *FSStore) resolve(rel string) (string, bool) {
	clean := path.Clean("/" + rel)[1:]
	if clean == "" || !strings.HasPrefix(clean, "images/") {
		return "", false
	}
	return filepath.Join(s.Root, filepath.FromSlash(clean)), true
}

func (s *FSStore) Delete(_ context.Context, rel string) (bool, error) {
	full, ok := s.resolve(rel)
	if !ok {
		return false, nil
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("delete image: %w", err)
	}
	return true, nil
}

// URL is served by the static /images route.
func (s *FSStore) URL(rel string) string {
	return "/" + strings.TrimPrefix(rel, "/")
}
