// Package sdk is the host surface the contract runs against: signer identities,
// the per-transaction environment and the key/value store.
package sdk

import (
	"context"
	"sort"
)

// Sender carries the identity that signed the instruction.
type Sender struct {
	Address Address `json:"id"`
}

// Env is the transaction environment handed to the contract. Timestamp is the
// ledger time in unix seconds; the contract never reads the wall clock itself.
type Env struct {
	Sender    Sender `json:"sender"`
	Timestamp int64  `json:"timestamp"`
	TxId      string `json:"tx_id"`
}

// NewEnv is a small constructor used by transports and tests.
func NewEnv(sender Address, timestamp int64, txID string) Env {
	return Env{Sender: Sender{Address: sender}, Timestamp: timestamp, TxId: txID}
}

// Store is the persistent key/value backend. Get returns nil for a missing key.
// Apply must write the whole batch or nothing.
type Store interface {
	Get(ctx context.Context, key string) (*string, error)
	Apply(ctx context.Context, batch *Batch) error
}

// Op is one write inside a batch; a nil Value deletes the key.
type Op struct {
	Key   string
	Value *string
}

// Batch is the ordered write set of a single committed transaction.
type Batch struct {
	Ops []Op
}

// Set queues a write.
func (b *Batch) Set(key, value string) {
	v := value
	b.Ops = append(b.Ops, Op{Key: key, Value: &v})
}

// Delete queues a removal.
func (b *Batch) Delete(key string) {
	b.Ops = append(b.Ops, Op{Key: key})
}

// Len reports the number of queued ops.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Ops)
}

// Keys lists the touched keys in sorted order, handy for logging and tests.
func (b *Batch) Keys() []string {
	keys := make([]string, 0, b.Len())
	if b == nil {
		return keys
	}
	for _, op := range b.Ops {
		keys = append(keys, op.Key)
	}
	sort.Strings(keys)
	return keys
}
