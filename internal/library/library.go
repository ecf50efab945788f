// Package library keeps named patches in a bbolt database file.
package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cwbudde/algo-patch/patch"
)

var (
	// ErrNotFound is returned when no patch has the requested name.
	ErrNotFound = errors.New("library: patch not found")
	// ErrInvalidName is returned for empty or blank patch names.
	ErrInvalidName = errors.New("library: invalid patch name")
)

var bucketPatches = []byte("patches")

// Store is a named patch library backed by a single database file.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the library at path. It waits at most a second
// for another process holding the file lock.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("library: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPatches)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("library: init %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	db := s.db
	s.db = nil
	return db.Close()
}

// Put stores doc under name, replacing any previous patch of that name.
func (s *Store) Put(name string, doc *patch.Document) error {
	key, err := keyOf(name)
	if err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := doc.WriteJSON(&buf); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPatches).Put(key, buf.Bytes())
	})
}

// Get loads the patch stored under name.
func (s *Store) Get(name string) (*patch.Document, error) {
	key, err := keyOf(name)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketPatches).Get(key)
		if v == nil {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		// v is only valid inside the transaction.
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return patch.LoadJSON(bytes.NewReader(data))
}

// List returns the stored patch names in lexical order.
func (s *Store) List() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPatches).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("library: list: %w", err)
	}
	return names, nil
}

// Delete removes the patch stored under name.
func (s *Store) Delete(name string) error {
	key, err := keyOf(name)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPatches)
		if b.Get(key) == nil {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return b.Delete(key)
	})
}

func keyOf(name string) ([]byte, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	return []byte(name), nil
}
