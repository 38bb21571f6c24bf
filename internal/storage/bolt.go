package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"go.klb.dev/recall/internal/item"
)

var (
	boltBucket = []byte("history")
	boltKey    = []byte("items") // the whole document
)

// Bolt keeps the history document under a single key of a bbolt database.
// Each Save is one transaction.
type Bolt struct {
	db   *bbolt.DB
	path string
}

// OpenBolt opens or creates the database at path.
func OpenBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Bolt{db: db, path: path}, nil
}

func (b *Bolt) Path() string { return b.path }

func (b *Bolt) Load() ([]item.Item, error) {
	var doc []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		bk := tx.Bucket(boltBucket)
		if bk == nil {
			return errors.New("history bucket missing")
		}
		if v := bk.Get(boltKey); v != nil {
			doc = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}
	if doc == nil {
		return []item.Item{}, nil
	}
	return decode(doc)
}

func (b *Bolt) Save(items []item.Item) error {
	doc, err := encode(items)
	if err != nil {
		return err
	}
	if err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucket).Put(boltKey, doc)
	}); err != nil {
		return fmt.Errorf("write %s: %w", b.path, err)
	}
	return nil
}

func (b *Bolt) Close() error { return b.db.Close() }
