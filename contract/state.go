package contract

import (
	"context"

	"presence_dao/sdk"
)

// State is the key/value surface handlers read and write during one instruction.
type State interface {
	Get(key string) (*string, error)
	Set(key, value string)
	Delete(key string)
}

// txState buffers writes over a backing store. Reads see earlier writes of the
// same instruction; nothing reaches the store until batch() is applied.
type txState struct {
	ctx    context.Context
	store  sdk.Store
	reads  map[string]*string
	writes map[string]*string
	order  []string
}

func newTxState(ctx context.Context, store sdk.Store) *txState {
	return &txState{
		ctx:    ctx,
		store:  store,
		reads:  map[string]*string{},
		writes: map[string]*string{},
	}
}

func (s *txState) Get(key string) (*string, error) {
	if v, ok := s.writes[key]; ok {
		return v, nil
	}
	if v, ok := s.reads[key]; ok {
		return v, nil
	}
	v, err := s.store.Get(s.ctx, key)
	if err != nil {
		return nil, err
	}
	s.reads[key] = v
	return v, nil
}

func (s *txState) Set(key, value string) {
	v := value
	s.record(key, &v)
}

func (s *txState) Delete(key string) {
	s.record(key, nil)
}

func (s *txState) record(key string, v *string) {
	if _, ok := s.writes[key]; !ok {
		s.order = append(s.order, key)
	}
	s.writes[key] = v
}

// batch returns the pending writes in first-touch order, dropping writes that
// leave a key as it was loaded so unchanged records are not rewritten.
func (s *txState) batch() *sdk.Batch {
	b := &sdk.Batch{}
	for _, key := range s.order {
		v := s.writes[key]
		if base, seen := s.reads[key]; seen && sameValue(base, v) {
			continue
		}
		if v == nil {
			b.Delete(key)
		} else {
			b.Set(key, *v)
		}
	}
	return b
}

func sameValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
