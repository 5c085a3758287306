package storage

import (
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Storage keeps uploaded profile pictures on a filesystem, each under a
// generated collision-resistant name. Retrieval URLs are built from the
// configured public base URL, so the raw filename never needs to leave the
// backend.
type Storage struct {
	fs      afero.Fs
	root    string
	baseURL string
}

// New creates a storage rooted at dir on the OS filesystem.
func New(dir, baseURL string) (*Storage, error) {
	fs := afero.NewOsFs()
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Storage{fs: fs, root: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// NewWithFs creates a storage over an arbitrary filesystem. Tests use an
// in-memory one.
func NewWithFs(fs afero.Fs, dir, baseURL string) (*Storage, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Storage{fs: fs, root: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Store writes the file content under a generated name, preserving the
// original extension, and returns that name.
func (s *Storage) Store(r io.Reader, originalName string) (string, error) {
	name := uuid.NewString() + strings.ToLower(path.Ext(originalName))

	f, err := s.fs.Create(path.Join(s.root, name))
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	return name, nil
}

// Open returns the stored file for reading, along with its size.
func (s *Storage) Open(name string) (afero.File, int64, error) {
	full := path.Join(s.root, name)
	info, err := s.fs.Stat(full)
	if err != nil {
		return nil, 0, err
	}
	f, err := s.fs.Open(full)
	if err != nil {
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// Exists reports whether a stored file is present.
func (s *Storage) Exists(name string) bool {
	ok, err := afero.Exists(s.fs, path.Join(s.root, name))
	return err == nil && ok
}

// Delete removes a stored file. Missing files are not an error: the caller
// replacing a picture only cares that the old name is gone.
func (s *Storage) Delete(name string) error {
	err := s.fs.Remove(path.Join(s.root, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// URLFor builds the public retrieval URL for a user's profile picture.
func (s *Storage) URLFor(userID uint) string {
	return s.baseURL + "/api/users/" + strconv.FormatUint(uint64(userID), 10) + "/profile-picture"
}
