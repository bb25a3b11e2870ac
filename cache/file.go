package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonwraymond/esotap/tabular"
)

// entryExt is the file extension of serialized cache entries.
const entryExt = ".json"

// Store is the interface the query executor caches through.
//
// Contract:
// - Lookup never errors; it returns (nil, false) on any kind of miss.
// - Store overwrites the whole entry for the key; never a partial write.
type Store interface {
	Lookup(query, endpoint string) (*tabular.Table, bool)
	Store(query, endpoint string, t *tabular.Table) error
	Delete(query, endpoint string) error
}

// FileStore keeps one file per cache key under a directory, named
// <fingerprint>.json. Entry age is the file's modification time. A single
// process is assumed to own the directory; concurrent writers of the same
// key race last-write-wins, which is harmless because entries for an
// identical (query, endpoint) pair are idempotent.
type FileStore struct {
	dir    string
	policy Policy
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewFileStore creates the cache directory if needed and returns a store
// over it. A nil logger falls back to the standard logrus logger.
func NewFileStore(dir string, policy Policy, logger logrus.FieldLogger) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("cache: directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: creating directory: %w", err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FileStore{dir: dir, policy: policy, logger: logger, now: time.Now}, nil
}

// Path returns the on-disk location of the entry for a (query, endpoint)
// pair, whether or not it exists.
func (s *FileStore) Path(query, endpoint string) string {
	return filepath.Join(s.dir, Fingerprint(query, endpoint)+entryExt)
}

// Lookup retrieves a cached result table. It returns (nil, false) when the
// policy disables caching, no entry exists, the entry is older than the
// TTL, or the payload does not decode as a table.
func (s *FileStore) Lookup(query, endpoint string) (*tabular.Table, bool) {
	if !s.policy.Active() {
		return nil, false
	}

	path := s.Path(query, endpoint)
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.WithError(err).WithField("path", path).Debug("cache stat failed")
		}
		return nil, false
	}
	if s.policy.Expired(info.ModTime(), s.now()) {
		s.logger.WithField("path", path).Debug("cache entry expired")
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.WithError(err).WithField("path", path).Debug("cache read failed")
		return nil, false
	}
	table, err := tabular.Decode(data)
	if err != nil {
		s.logger.WithError(err).WithField("path", path).Debug("cache entry undecodable")
		return nil, false
	}

	s.logger.WithField("path", path).Debug("retrieved result from cache")
	return table, true
}

// Store serializes the full table and replaces any existing entry for the
// key. The entry is written to a temporary file and renamed into place so a
// crash never leaves a truncated entry behind.
func (s *FileStore) Store(query, endpoint string, t *tabular.Table) error {
	if !s.policy.Active() {
		return nil
	}

	data, err := tabular.Encode(t)
	if err != nil {
		return fmt.Errorf("cache: encoding table: %w", err)
	}

	path := s.Path(query, endpoint)
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("cache: writing entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("cache: committing entry: %w", err)
	}
	return nil
}

// Delete removes the entry for a key. Idempotent - no error on miss.
func (s *FileStore) Delete(query, endpoint string) error {
	err := os.Remove(s.Path(query, endpoint))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cache: deleting entry: %w", err)
	}
	return nil
}

// Ensure FileStore implements Store
var _ Store = (*FileStore)(nil)
