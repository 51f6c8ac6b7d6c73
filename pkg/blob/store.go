package blob

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/mwantia/sham/pkg/fault"
	"github.com/spf13/afero"
)

// TempDirName is the scratch directory below the root used for uploads
// that have not been assigned an asset id yet.
const TempDirName = "tmp"

// Store keeps asset payloads as plain files named by their asset id.
type Store struct {
	fs   afero.Fs
	root string
}

// PathFor returns the canonical location of an asset below root.
// It does not check whether the file exists.
func PathFor(root string, id uint) string {
	return filepath.Join(root, strconv.FormatUint(uint64(id), 10))
}

// NewStore creates a blob store rooted at root on the OS filesystem.
func NewStore(root string) *Store {
	return NewStoreFs(afero.NewOsFs(), root)
}

// NewStoreFs creates a blob store on an arbitrary afero filesystem.
func NewStoreFs(fsys afero.Fs, root string) *Store {
	return &Store{
		fs:   fsys,
		root: root,
	}
}

// Root returns the directory the store writes into.
func (s *Store) Root() string {
	return s.root
}

// Read returns the full content of the asset. The whole blob is held in
// memory; the payload ceiling is enforced by the caller on upload.
func (s *Store) Read(ctx context.Context, id uint) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, PathFor(s.root, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fault.Wrap(fault.ErrNotFound, err, "asset %d has no content", id)
		}
		return nil, fault.Wrap(fault.ErrIO, err, "failed to read asset %d", id)
	}

	return data, nil
}

// WriteTemp stores data under a fresh random name in the scratch directory
// and returns its path. The file must later be handed to Commit or Discard.
func (s *Store) WriteTemp(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, TempDirName)
	// MkdirAll succeeds when a concurrent writer created the directory first
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fault.Wrap(fault.ErrIO, err, "failed to create scratch directory %s", dir)
	}

	path := filepath.Join(dir, uuid.NewString())
	f, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fault.Wrap(fault.ErrIO, err, "failed to create scratch file")
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		s.fs.Remove(path)
		return "", fault.Wrap(fault.ErrIO, err, "failed to write scratch file %s", path)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		s.fs.Remove(path)
		return "", fault.Wrap(fault.ErrIO, err, "failed to sync scratch file %s", path)
	}

	if err := f.Close(); err != nil {
		s.fs.Remove(path)
		return "", fault.Wrap(fault.ErrIO, err, "failed to close scratch file %s", path)
	}

	return path, nil
}

// Commit moves a scratch file to the canonical path of id. The rename is
// atomic on a single filesystem: readers see either no file or all of it.
func (s *Store) Commit(tmp string, id uint) error {
	dest := PathFor(s.root, id)
	if err := s.fs.Rename(tmp, dest); err != nil {
		return fault.Wrap(fault.ErrIO, err, "failed to move %s to %s", tmp, dest)
	}

	return nil
}

// Discard removes a scratch file that will never be committed.
func (s *Store) Discard(tmp string) error {
	if err := s.fs.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fault.Wrap(fault.ErrIO, err, "failed to remove scratch file %s", tmp)
	}

	return nil
}
