// Package media persists downloaded images on the local filesystem.
package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"wallfeed/internal/models"

	"github.com/spf13/afero"
)

// AlbumName is the directory downloads are collected in.
const AlbumName = "Downloads"

// Store writes images into the album directory below its root.
type Store struct {
	fs   afero.Fs
	root string
}

func NewStore(fsys afero.Fs, root string) *Store {
	return &Store{fs: fsys, root: root}
}

// AlbumDir returns the directory files are saved in.
func (s *Store) AlbumDir() string {
	return filepath.Join(s.root, AlbumName)
}

// Save writes data as name into the album and returns the resulting path.
// An existing file with the same name is replaced.
func (s *Store) Save(name string, data []byte) (string, error) {
	dir := s.AlbumDir()
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", classify("create album", err)
	}
	dst := filepath.Join(dir, filepath.Base(name))
	if err := afero.WriteFile(s.fs, dst, data, 0o644); err != nil {
		return "", classify("write image", err)
	}
	return dst, nil
}

func classify(op string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return models.NewPermissionError(op+": storage access denied", err)
	}
	return models.NewInternalError(fmt.Errorf("%s: %w", op, err))
}

// FileName derives a local file name from an image reference: the last path
// segment when there is one, else a timestamped fallback.
func FileName(imageURL string, now time.Time) string {
	if u, err := url.Parse(imageURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "." && base != "/" && !strings.HasPrefix(base, "..") {
			return base
		}
	}
	return fmt.Sprintf("image-%d.jpg", now.Unix())
}

// FSPermissions grants storage access when the album directory can be created
// and written to.
type FSPermissions struct {
	Store *Store
}

func (p FSPermissions) RequestStorage(_ context.Context) error {
	dir := p.Store.AlbumDir()
	if err := p.Store.fs.MkdirAll(dir, 0o755); err != nil {
		return models.NewPermissionError("storage permission denied", err)
	}
	f, err := afero.TempFile(p.Store.fs, dir, ".probe-*")
	if err != nil {
		return models.NewPermissionError("storage permission denied", err)
	}
	name := f.Name()
	_ = f.Close()
	_ = p.Store.fs.Remove(name)
	return nil
}
