// Package memory is an in-process sdk.Store, optionally persisted to a JSON
// snapshot file after every committed batch.
package memory

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"presence_dao/sdk"

	"github.com/puzpuzpuz/xsync/v4"
)

// Store keeps committed values in a concurrent map. Apply is serialized and
// either commits the whole batch or, when the snapshot cannot be written,
// none of it.
type Store struct {
	mu       sync.Mutex
	db       *xsync.Map[string, string]
	filename string
}

// New returns an empty store that never touches disk.
func New() *Store {
	return &Store{db: xsync.NewMap[string, string]()}
}

// Open loads filename if it exists and persists every Apply back to it.
func Open(filename string) (*Store, error) {
	s := New()
	s.filename = filename
	if err := s.loadFromFile(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Get(_ context.Context, key string) (*string, error) {
	val, ok := s.db.Load(key)
	if !ok {
		return nil, nil
	}
	return &val, nil
}

func (s *Store) Apply(ctx context.Context, batch *sdk.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if batch.Len() == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// The snapshot lands first so a failed write leaves the map untouched.
	if s.filename != "" {
		if err := s.saveToFile(batch); err != nil {
			return fmt.Errorf("persist snapshot: %w", err)
		}
	}
	for _, op := range batch.Ops {
		if op.Value == nil {
			s.db.Delete(op.Key)
			continue
		}
		s.db.Store(op.Key, *op.Value)
	}
	return nil
}

// Len reports the number of stored keys.
func (s *Store) Len() int {
	return s.db.Size()
}

func (s *Store) Close() error {
	return nil
}

// saveToFile writes the committed map with pending applied on top. Keys are
// binary, so the snapshot stores hex keys and base64 values.
func (s *Store) saveToFile(pending *sdk.Batch) error {
	out := make(map[string]string, s.db.Size()+pending.Len())
	s.db.Range(func(k, v string) bool {
		out[hex.EncodeToString([]byte(k))] = base64.StdEncoding.EncodeToString([]byte(v))
		return true
	})
	for _, op := range pending.Ops {
		hk := hex.EncodeToString([]byte(op.Key))
		if op.Value == nil {
			delete(out, hk)
			continue
		}
		out[hk] = base64.StdEncoding.EncodeToString([]byte(*op.Value))
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.filename + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.filename)
}

func (s *Store) loadFromFile() error {
	data, err := os.ReadFile(s.filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return os.MkdirAll(filepath.Dir(s.filename), 0o755)
		}
		return err
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse snapshot %s: %w", s.filename, err)
	}
	for hk, bv := range raw {
		k, err := hex.DecodeString(hk)
		if err != nil {
			return fmt.Errorf("snapshot key %q: %w", hk, err)
		}
		v, err := base64.StdEncoding.DecodeString(bv)
		if err != nil {
			return fmt.Errorf("snapshot value for %q: %w", hk, err)
		}
		s.db.Store(string(k), string(v))
	}
	return nil
}
