package changelog

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketEntries = []byte("changelog")

// BoltStore keeps entries in a local bbolt file, one key per reload in
// insertion order.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the changelog database at path.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating changelog directory: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating changelog bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Record(_ context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
}

func (s *BoltStore) Latest(_ context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 1
	}
	var raw [][]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEntries).Cursor()
		for k, v := c.Last(); k != nil && len(raw) < limit; k, v = c.Prev() {
			// bbolt slices are only valid inside the transaction.
			buf := make([]byte, len(v))
			copy(buf, v)
			raw = append(raw, buf)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading changelog: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, data := range raw {
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
