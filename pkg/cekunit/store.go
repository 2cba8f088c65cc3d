package cekunit

import (
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/afero"
)

const (
	// SessionFileName is the name of the single session slot.
	SessionFileName = "session.json"
	// FallbackCacheDir is used when no per-user cache directory resolves.
	FallbackCacheDir = "cache"

	cacheSubPath  = "cekunit/libcekunit"
	sessionMode   = 0600
	cacheDirMode  = 0700
	tmpFilePrefix = ".session.json.tmp.*"
)

var xdgCacheFile = xdg.CacheFile

// DefaultCacheDir returns <user cache dir>/cekunit/libcekunit, creating it,
// or ./cache when the user cache directory cannot be resolved.
func DefaultCacheDir() string {
	p, err := xdgCacheFile(filepath.Join(cacheSubPath, SessionFileName))
	if err != nil {
		return FallbackCacheDir
	}
	return filepath.Dir(p)
}

// Store persists exactly one Session as pretty-printed JSON. Writes go to a
// temporary file in the same directory which is synced and renamed over
// session.json, so readers never observe a partial document.
type Store struct {
	fs   afero.Fs
	dir  string
	path string
	now  func() time.Time
}

// NewStore returns a Store on the OS filesystem rooted at dir.
func NewStore(dir string) (*Store, error) {
	return NewStoreFs(afero.NewOsFs(), dir)
}

// NewStoreFs returns a Store on the given filesystem. The directory is
// created if needed; failure to create it is fatal.
func NewStoreFs(afs afero.Fs, dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultCacheDir()
	}
	if err := afs.MkdirAll(dir, cacheDirMode); err != nil {
		return nil, storageError(KindCacheUnwritable, dir, err)
	}
	return &Store{
		fs:   afs,
		dir:  dir,
		path: filepath.Join(dir, SessionFileName),
		now:  time.Now,
	}, nil
}

// SetClock replaces the time source used by LoadFresh and UpdateToken.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Path returns the session file path.
func (s *Store) Path() string { return s.path }

// Dir returns the directory holding the session file.
func (s *Store) Dir() string { return s.dir }

// Save atomically replaces the stored session.
func (s *Store) Save(sess *Session) error {
	if sess == nil {
		return &Error{Kind: KindJSONParse, Op: "cache", Name: s.path, Msg: "nil session"}
	}
	doc := sess.Clone()
	if doc.Cookies == nil {
		doc.Cookies = []Cookie{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &Error{Kind: KindJSONParse, Op: "cache", Err: err}
	}

	if err := s.fs.MkdirAll(s.dir, cacheDirMode); err != nil {
		return storageError(KindCacheUnwritable, s.dir, err)
	}
	tmpFile, err := afero.TempFile(s.fs, s.dir, tmpFilePrefix)
	if err != nil {
		return storageError(KindCacheUnwritable, s.dir, err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		s.fs.Remove(tmpPath)
		return storageError(KindCacheUnwritable, tmpPath, err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		s.fs.Remove(tmpPath)
		return storageError(KindCacheUnwritable, tmpPath, err)
	}
	if err := tmpFile.Close(); err != nil {
		s.fs.Remove(tmpPath)
		return storageError(KindCacheUnwritable, tmpPath, err)
	}
	if err := s.fs.Chmod(tmpPath, sessionMode); err != nil {
		s.fs.Remove(tmpPath)
		return storageError(KindCacheUnwritable, tmpPath, err)
	}
	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		s.fs.Remove(tmpPath)
		return storageError(KindCacheUnwritable, s.path, err)
	}
	return nil
}

// Load returns the stored session, or nil if there is none.
// It does not check LoggedIn.
func (s *Store) Load() (*Session, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, storageError(KindCacheUnreadable, s.path, err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, storageError(KindCacheMalformed, s.path, err)
	}
	return &sess, nil
}

// Clear deletes the stored session. A missing file is not an error.
func (s *Store) Clear() error {
	err := s.fs.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storageError(KindCacheUnwritable, s.path, err)
	}
	return nil
}

// LoadFresh returns the stored session unless it is absent or at least
// maxAge old.
func (s *Store) LoadFresh(maxAge time.Duration) (*Session, error) {
	sess, err := s.Load()
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.Age(s.now()) >= maxAge {
		return nil, nil
	}
	return sess, nil
}

// UpdateToken replaces the CSRF token and refreshes the timestamp.
// It is a no-op when no session is stored.
func (s *Store) UpdateToken(token string) error {
	sess, err := s.Load()
	if err != nil || sess == nil {
		return err
	}
	sess.CSRFToken = token
	sess.Timestamp = s.now().Unix()
	return s.Save(sess)
}
