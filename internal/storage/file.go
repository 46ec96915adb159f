package storage

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/amirbrooks/tasklite/internal/store"
)

type randReader struct{}

func (randReader) Read(p []byte) (int, error) { return rand.Read(p) }

var timeNow = func() time.Time { return time.Now().UTC() }

// File stores the whole state as one encoded document.
type File struct {
	Path   string
	codec  codec
	logger *zap.Logger
}

// Open returns the persister matching the file extension: a bbolt
// database for .db/.bolt, a single encoded file otherwise.
func Open(path string, logger *zap.Logger) (store.Persister, error) {
	path = expandHome(strings.TrimSpace(path))
	if path == "" {
		return nil, fmt.Errorf("%w: state file path is required", store.ErrInvalid)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	format := FormatForPath(path)
	if format == FormatBolt {
		return NewBolt(path, logger), nil
	}
	return NewFile(path, format, logger)
}

func NewFile(path, format string, logger *zap.Logger) (*File, error) {
	c, err := codecFor(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalid, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &File{Path: path, codec: c, logger: logger}, nil
}

func (f *File) Load() (*store.State, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, store.ErrNoState
		}
		return nil, &store.PersistenceError{Op: "read", Path: f.Path, Err: err}
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		f.logger.Warn("state file is empty, starting fresh", zap.String("path", f.Path))
		return nil, store.ErrNoState
	}
	var rec record
	if err := f.codec.Decode(b, &rec); err != nil {
		return nil, &store.PersistenceError{Op: "decode " + f.codec.Format(), Path: f.Path, Err: err}
	}
	f.logger.Debug("state loaded", zap.String("path", f.Path), zap.String("format", f.codec.Format()))
	return fromRecord(&rec)
}

func (f *File) Save(st *store.State) error {
	b, err := f.codec.Encode(toRecord(st))
	if err != nil {
		return &store.PersistenceError{Op: "encode " + f.codec.Format(), Path: f.Path, Err: err}
	}
	if err := atomicWriteFile(f.Path, b, 0o644); err != nil {
		return &store.PersistenceError{Op: "write", Path: f.Path, Err: err}
	}
	f.logger.Debug("state saved", zap.String("path", f.Path), zap.Int("bytes", len(b)))
	return nil
}

// Backup copies the current state file next to it as <file>.bak-<ULID>.
// It returns an empty path when there is nothing to copy.
func Backup(path string) (string, error) {
	path = expandHome(path)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", &store.PersistenceError{Op: "backup", Path: path, Err: err}
	}
	dst := path + ".bak-" + newULID()
	if err := atomicWriteFile(dst, b, 0o600); err != nil {
		return "", &store.PersistenceError{Op: "backup", Path: dst, Err: err}
	}
	return dst, nil
}

func atomicWriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, "."+filepath.Base(path)+".tmp-"+newULID())
	if err := os.WriteFile(tmp, data, perm); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// Rename is atomic on same filesystem.
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func newULID() string {
	t := ulid.Timestamp(timeNow())
	entropy := ulid.Monotonic(randReader{}, 0)
	id, err := ulid.New(t, entropy)
	if err != nil {
		// fallback
		return fmt.Sprintf("%d", timeNow().UnixNano())
	}
	return id.String()
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~"+string(os.PathSeparator)) || path == "~" {
		home, _ := os.UserHomeDir()
		if home != "" {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
