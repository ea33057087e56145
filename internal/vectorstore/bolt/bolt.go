package bolt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

var (
	bucketVectors = []byte("vectors")
	bucketMeta    = []byte("meta")
	keyDimension  = []byte("dimension")
)

type record struct {
	FileName  string    `msgpack:"f"`
	Vector    []float32 `msgpack:"v"`
	UpdatedAt int64     `msgpack:"u"`
}

// Storage keeps one vector per file in a local bbolt database and searches it by brute force.
type Storage struct {
	db        *bbolt.DB
	dimension int
}

func Open(path string) (*Storage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	s := &Storage{db: db}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketVectors); err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if raw := meta.Get(keyDimension); raw != nil {
			return msgpack.Unmarshal(raw, &s.dimension)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Init records the dimension on first use and rejects a different one afterwards.
func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if s.dimension != 0 && s.dimension != dimension {
		return fmt.Errorf("index has dimension %d, embedder produces %d", s.dimension, dimension)
	}
	raw, err := msgpack.Marshal(dimension)
	if err != nil {
		return err
	}
	if err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyDimension, raw)
	}); err != nil {
		return err
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(_ context.Context, records []domain.Record) error {
	now := time.Now().Unix()
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for _, r := range records {
			if r.FileName == "" {
				return errors.New("record without file name")
			}
			if s.dimension > 0 && len(r.Vector) != s.dimension {
				return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(r.Vector), s.dimension)
			}
			data, err := msgpack.Marshal(record{FileName: r.FileName, Vector: r.Vector, UpdatedAt: now})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(r.FileName), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Storage) Query(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	var matches []domain.Match
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVectors).ForEach(func(_, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var r record
			if err := msgpack.Unmarshal(v, &r); err != nil {
				return err
			}
			matches = append(matches, domain.Match{FileName: r.FileName, Score: vectorstore.Cosine(r.Vector, vector)})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return vectorstore.TopK(matches, topK), nil
}

func (s *Storage) Clear(context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketVectors); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(bucketVectors)
		return err
	})
}

func (s *Storage) Close() error {
	return s.db.Close()
}
