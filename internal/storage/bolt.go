package storage

import (
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/amirbrooks/tasklite/internal/store"
)

var (
	boltBucket = []byte("tasklite")
	boltKey    = []byte("state")
)

// Bolt keeps the JSON-encoded state under a single key of a bbolt
// database. The database is opened per call and closed again.
type Bolt struct {
	Path   string
	logger *zap.Logger
}

func NewBolt(path string, logger *zap.Logger) *Bolt {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bolt{Path: path, logger: logger}
}

func (b *Bolt) open(readOnly bool) (*bolt.DB, error) {
	if !readOnly {
		if err := os.MkdirAll(filepath.Dir(b.Path), 0o755); err != nil {
			return nil, err
		}
	}
	return bolt.Open(b.Path, 0o600, &bolt.Options{Timeout: time.Second, ReadOnly: readOnly})
}

func (b *Bolt) Load() (*store.State, error) {
	if _, err := os.Stat(b.Path); os.IsNotExist(err) {
		return nil, store.ErrNoState
	}
	db, err := b.open(true)
	if err != nil {
		return nil, &store.PersistenceError{Op: "open bolt", Path: b.Path, Err: err}
	}
	defer db.Close()

	var payload []byte
	err = db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(boltBucket)
		if bkt == nil {
			return nil
		}
		if v := bkt.Get(boltKey); v != nil {
			payload = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, &store.PersistenceError{Op: "read bolt", Path: b.Path, Err: err}
	}
	if payload == nil {
		return nil, store.ErrNoState
	}
	var rec record
	if err := (jsonCodec{}).Decode(payload, &rec); err != nil {
		return nil, &store.PersistenceError{Op: "decode bolt", Path: b.Path, Err: err}
	}
	b.logger.Debug("state loaded", zap.String("path", b.Path), zap.String("format", FormatBolt))
	return fromRecord(&rec)
}

func (b *Bolt) Save(st *store.State) error {
	payload, err := (jsonCodec{}).Encode(toRecord(st))
	if err != nil {
		return &store.PersistenceError{Op: "encode bolt", Path: b.Path, Err: err}
	}
	db, err := b.open(false)
	if err != nil {
		return &store.PersistenceError{Op: "open bolt", Path: b.Path, Err: err}
	}
	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		return bkt.Put(boltKey, payload)
	})
	if err != nil {
		return &store.PersistenceError{Op: "write bolt", Path: b.Path, Err: err}
	}
	b.logger.Debug("state saved", zap.String("path", b.Path), zap.Int("bytes", len(payload)))
	return nil
}
