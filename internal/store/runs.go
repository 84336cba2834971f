package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/kilupskalvis/cocokit/internal/models"
	bolt "go.etcd.io/bbolt"
)

// KeyLastOutput holds the annotation file written by the most recent run
// that produced a dataset.
const KeyLastOutput = "last_output"

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

// RecordRun appends run to the log. An empty ID gets a fresh UUID and a
// zero Timestamp is set to now. Seq is always assigned by the store.
func (s *Store) RecordRun(run *models.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		runs := tx.Bucket(bucketRuns)
		index := tx.Bucket(bucketRunIndex)
		if index.Get([]byte(run.ID)) != nil {
			return fmt.Errorf("run %s already recorded", run.ID)
		}

		seq, err := runs.NextSequence()
		if err != nil {
			return fmt.Errorf("next run sequence: %w", err)
		}
		run.Seq = seq

		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("marshal run: %w", err)
		}
		if err := runs.Put(seqKey(seq), data); err != nil {
			return err
		}
		if err := index.Put([]byte(run.ID), seqKey(seq)); err != nil {
			return err
		}
		if run.Output != "" && run.FingerprintAfter != "" {
			return tx.Bucket(bucketKV).Put([]byte(KeyLastOutput), []byte(run.Output))
		}
		return nil
	})
}

// GetRun retrieves a run by its full ID.
func (s *Store) GetRun(id string) (*models.Run, error) {
	var run *models.Run
	err := s.db.View(func(tx *bolt.Tx) error {
		k := tx.Bucket(bucketRunIndex).Get([]byte(id))
		if k == nil {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		var err error
		run, err = decodeRun(tx.Bucket(bucketRuns).Get(k))
		return err
	})
	return run, err
}

// GetRunByShortID retrieves a run by ID prefix. A prefix matching more than
// one run is an error.
func (s *Store) GetRunByShortID(prefix string) (*models.Run, error) {
	var run *models.Run
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRunIndex).Cursor()
		p := []byte(prefix)

		var match []byte
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			if match != nil {
				return fmt.Errorf("run prefix %q is ambiguous", prefix)
			}
			match = v
		}
		if match == nil {
			return fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
		}
		var err error
		run, err = decodeRun(tx.Bucket(bucketRuns).Get(match))
		return err
	})
	return run, err
}

// ListRuns returns runs newest first. A limit of 0 returns all of them.
func (s *Store) ListRuns(limit int) ([]*models.Run, error) {
	var runs []*models.Run
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRuns).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(runs) >= limit {
				break
			}
			run, err := decodeRun(v)
			if err != nil {
				return err
			}
			runs = append(runs, run)
		}
		return nil
	})
	return runs, err
}

// CountRuns returns the number of recorded runs.
func (s *Store) CountRuns() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketRuns).Stats().KeyN
		return nil
	})
	return n, err
}

func decodeRun(data []byte) (*models.Run, error) {
	var run models.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &run, nil
}
