// Package store provides the bbolt-backed run log for a cocokit project.
// Every mutating command appends a run; the log is never rewritten.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names used by the run log.
var (
	bucketRuns     = []byte("runs")      // seq (big endian) -> run JSON
	bucketRunIndex = []byte("run_index") // run id -> seq
	bucketKV       = []byte("kv")
)

// ErrRunNotFound is returned when no run matches an id or prefix.
var ErrRunNotFound = errors.New("run not found")

// ErrLogVersion is returned when the run log was written by an incompatible
// version of cocokit.
var ErrLogVersion = errors.New("unsupported run log version")

// logVersion is stored under keyVersion when a run log is created.
const (
	logVersion = "1"
	keyVersion = "version"
)

// Store is the run log of one project.
type Store struct {
	db *bolt.DB
}

// Open opens the run log at path, creating the file, its directory and its
// buckets on first use.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create run log directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}
	if err := db.Update(prepare); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// prepare creates missing buckets and checks the log version.
func prepare(tx *bolt.Tx) error {
	for _, name := range [][]byte{bucketRuns, bucketRunIndex, bucketKV} {
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return fmt.Errorf("create bucket %s: %w", name, err)
		}
	}
	kv := tx.Bucket(bucketKV)
	switch v := kv.Get([]byte(keyVersion)); {
	case v == nil:
		return kv.Put([]byte(keyVersion), []byte(logVersion))
	case string(v) != logVersion:
		return fmt.Errorf("%w: %s", ErrLogVersion, v)
	}
	return nil
}

// Close closes the run log.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetValue returns the value stored under key, or "" when it is unset.
func (s *Store) GetValue(key string) (string, error) {
	var val string
	err := s.db.View(func(tx *bolt.Tx) error {
		val = string(tx.Bucket(bucketKV).Get([]byte(key)))
		return nil
	})
	return val, err
}

// SetValue stores value under key.
func (s *Store) SetValue(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKV).Put([]byte(key), []byte(value))
	})
}
