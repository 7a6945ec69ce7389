// Package store keeps a history of classifications in a bolt database.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/boltdb/bolt"

	"github.com/Brownie44l1/digit-api/internal/model"
)

var bucketName = []byte("predictions")

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("prediction not found")

type Record struct {
	ID          uint64             `json:"id"`
	Source      string             `json:"source"`
	Backend     string             `json:"backend"`
	Class       string             `json:"class"`
	Confidence  float32            `json:"confidence"`
	Predictions []model.Prediction `json:"predictions"`
	CreatedAt   time.Time          `json:"created_at"`
}

type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Add stores rec under a new increasing id, which is returned.
func (s *Store) Add(rec Record) (uint64, error) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)

		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		rec.ID = id
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now().UTC()
		}

		buf, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(itob(id), buf)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to store prediction: %w", err)
	}
	return rec.ID, nil
}

func (s *Store) Get(id uint64) (Record, error) {
	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get(itob(id))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &rec)
	})
	return rec, err
}

// Recent returns up to n records, newest first.
func (s *Store) Recent(n int) ([]Record, error) {
	records := make([]Record, 0, n)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, v := c.Last(); k != nil && len(records) < n; k, v = c.Prev() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
