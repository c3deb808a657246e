package statements

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dvloznov/spending-dashboard/internal/domain"
)

// DirStore keeps statements below a local directory and hands out file:// URIs.
type DirStore struct {
	root string
}

// NewDirStore creates root if needed.
func NewDirStore(root string) (*DirStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve statements dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create statements dir: %w", err)
	}
	return &DirStore{root: abs}, nil
}

// Put implements Store.
func (s *DirStore) Put(ctx context.Context, userID string, period domain.Period, name string, data []byte) (string, error) {
	objectName, err := ObjectName(userID, period, name)
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.root, filepath.FromSlash(objectName))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("create period dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("write statement: %w", err)
	}
	return "file://" + filepath.ToSlash(full), nil
}

// Fetch implements Store.
func (s *DirStore) Fetch(ctx context.Context, uri string) ([]byte, error) {
	full, err := s.resolve(uri)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("fetch %s: %w", uri, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read statement: %w", err)
	}
	return data, nil
}

// List implements Store.
func (s *DirStore) List(ctx context.Context, userID string, period domain.Period) ([]string, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(PeriodPrefix(userID, period)))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("list %s for %s: %w", period, userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read period dir: %w", err)
	}

	// ReadDir sorts by filename
	var uris []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		uris = append(uris, "file://"+filepath.ToSlash(filepath.Join(dir, e.Name())))
	}
	if len(uris) == 0 {
		return nil, fmt.Errorf("list %s for %s: %w", period, userID, ErrNotFound)
	}
	return uris, nil
}

func (s *DirStore) resolve(uri string) (string, error) {
	if !strings.HasPrefix(uri, "file://") {
		return "", fmt.Errorf("invalid file URI: %s", uri)
	}
	full := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(uri, "file://")))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("statement URI %s is outside %s", uri, s.root)
	}
	return full, nil
}

var _ Store = (*DirStore)(nil)
