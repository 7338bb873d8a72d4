package kv

import (
	"fmt"
	"path/filepath"
	"sort"

	bolt "go.etcd.io/bbolt"
)

var bucketDefault = []byte("kv")

// BoltStore implements Store on top of a single BoltDB bucket, keyed
// by the same string keys every subsystem's KV-shaped state uses
// ("events:<ts>:<id>", "projection:<name>:position",
// "cascade:queue:<ts>:<id>", ...).
//
// A one-bucket-per-entity-kind layout makes sense when keys aren't
// otherwise distinguishable; corestate needs only one bucket because
// all of its KV-shaped state is already namespaced by key prefix.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) a BoltDB-backed Store at
// <dataDir>/corestate.db.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "corestate.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDefault)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketDefault).Get([]byte(key))
		if v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	return value, value != nil, err
}

func (s *BoltStore) Put(key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDefault).Put([]byte(key), value)
	})
}

func (s *BoltStore) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDefault).Delete([]byte(key))
	})
}

func (s *BoltStore) DeleteAll(keys []string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDefault)
		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) List(prefix string) ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketDefault).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && hasPrefix(k, p); k, v = c.Next() {
			entries = append(entries, Entry{Key: string(k), Value: append([]byte(nil), v...)})
		}
		return nil
	})
	return entries, err
}

func (s *BoltStore) Range(start, end string) ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketDefault).Cursor()
		s := []byte(start)
		e := []byte(end)
		for k, v := c.Seek(s); k != nil; k, v = c.Next() {
			if len(e) > 0 && string(k) >= end {
				break
			}
			entries = append(entries, Entry{Key: string(k), Value: append([]byte(nil), v...)})
		}
		return nil
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, err
}

func hasPrefix(k, p []byte) bool {
	if len(k) < len(p) {
		return false
	}
	for i := range p {
		if k[i] != p[i] {
			return false
		}
	}
	return true
}
