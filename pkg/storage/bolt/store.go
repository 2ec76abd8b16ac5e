// Package bolt is a single-file RouteStore for the command-line tools.
package bolt

import (
	"context"
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/storage"
)

var routesBucketKey = []byte("routes")

// Store keeps routes as JSON values keyed by id.
type Store struct {
	db *bolt.DB
}

var _ storage.RouteStore = (*Store)(nil)

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, hubErrors.ErrStorageError.WithMessagef("open %s", path).WithCause(err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(routesBucketKey)
		return err
	})
	if err != nil {
		db.Close()
		return nil, hubErrors.ErrStorageError.WithMessage("create routes bucket").WithCause(err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) SaveRoute(_ context.Context, r *storage.SavedRoute) error {
	data, err := json.Marshal(r)
	if err != nil {
		return hubErrors.ErrStorageError.WithMessage("encode route").WithCause(err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(routesBucketKey).Put([]byte(r.ID), data)
	})
	if err != nil {
		return hubErrors.ErrStorageError.WithMessage("save route").WithCause(err)
	}
	return nil
}

func (s *Store) GetRoute(_ context.Context, id string) (*storage.SavedRoute, error) {
	var r *storage.SavedRoute
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(routesBucketKey).Get([]byte(id))
		if v == nil {
			return storage.NotFound(id)
		}
		r = &storage.SavedRoute{}
		return decode(v, r)
	})
	return r, err
}

func (s *Store) ListRoutes(_ context.Context) ([]*storage.SavedRoute, error) {
	var out []*storage.SavedRoute
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(routesBucketKey).ForEach(func(k, v []byte) error {
			r := &storage.SavedRoute{}
			if err := decode(v, r); err != nil {
				return err
			}
			out = append(out, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	storage.SortNewestFirst(out)
	return out, nil
}

func (s *Store) DeleteRoute(_ context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(routesBucketKey)
		if b.Get([]byte(id)) == nil {
			return storage.NotFound(id)
		}
		return b.Delete([]byte(id))
	})
}

func decode(v []byte, r *storage.SavedRoute) error {
	if err := json.Unmarshal(v, r); err != nil {
		return hubErrors.ErrStorageError.WithMessage("decode route").WithCause(err)
	}
	return nil
}
