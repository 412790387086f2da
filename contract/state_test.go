package contract

import (
	"context"
	"strconv"
	"testing"

	"presence_dao/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxStateBatchSkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seed := newTxState(ctx, store)
	seed.Set("a", "1")
	seed.Set("b", "2")
	require.NoError(t, store.Apply(ctx, seed.batch()))

	st := newTxState(ctx, store)
	v, err := st.Get("a")
	require.NoError(t, err)
	require.NotNil(t, v)
	st.Set("a", *v)
	st.Set("c", "3")
	st.Delete("b")

	got, err := st.Get("c")
	require.NoError(t, err)
	assert.Equal(t, "3", *got)

	b := st.batch()
	assert.Equal(t, []string{"b", "c"}, b.Keys())
	assert.Nil(t, b.Ops[1].Value)

	// nothing was applied yet
	missing, err := store.Get(ctx, "c")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestIndexChunks(t *testing.T) {
	st := newTxState(context.Background(), memory.New())
	for i := 0; i < maxChunkSize+5; i++ {
		require.NoError(t, addToIndex(st, "idx:t", strconv.Itoa(i)))
	}
	require.NoError(t, addToIndex(st, "idx:t", "7"))

	n, err := getChunkCount(st, "idx:t")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := listIndex(st, "idx:t")
	require.NoError(t, err)
	assert.Len(t, all, maxChunkSize+5)
	assert.Equal(t, "0", all[0])
	assert.Equal(t, strconv.Itoa(maxChunkSize+4), all[len(all)-1])

	empty, err := listIndex(st, "idx:none")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
