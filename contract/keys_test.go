package contract

import (
	"testing"

	"presence_dao/sdk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackU64LE(t *testing.T) {
	got := packU64LE(0x0102030405060708, []byte{0xaa})
	assert.Equal(t, []byte{0xaa, 0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, got)

	var inline [8]byte
	packU64LEInline(0x0102030405060708, inline[:])
	assert.Equal(t, got[1:], inline[:])
}

func TestRecordKeysAreDistinct(t *testing.T) {
	addr := sdk.Address("8Vg5v1XqG8sT3CJ8nqUt4bq6sJpXxRk8yHd5WbLw2Zp1")
	keys := []string{
		stateKey(),
		memberKey(addr),
		eventKey(1),
		registrationKey(1, addr),
		proposalKey(1),
		voteKey(1, addr),
	}
	seen := map[string]bool{}
	for _, k := range keys {
		assert.False(t, seen[k], "key %x collides", k)
		seen[k] = true
	}
	assert.Equal(t, byte(kEvent), eventKey(7)[0])
	assert.Len(t, eventKey(7), 9)
	assert.NotEqual(t, registrationKey(1, addr), registrationKey(2, addr))
}

func TestRecordKeyMatchesHandlers(t *testing.T) {
	addr := sdk.Address("8Vg5v1XqG8sT3CJ8nqUt4bq6sJpXxRk8yHd5WbLw2Zp1")
	tests := []struct {
		kind AccountKind
		id   uint64
		want string
	}{
		{AccountState, 0, stateKey()},
		{AccountMember, 0, memberKey(addr)},
		{AccountEvent, 4, eventKey(4)},
		{AccountRegistration, 4, registrationKey(4, addr)},
		{AccountProposal, 2, proposalKey(2)},
		{AccountVote, 2, voteKey(2, addr)},
	}
	for _, tt := range tests {
		got, err := RecordKey(tt.kind, tt.id, addr)
		require.NoError(t, err, tt.kind)
		assert.Equal(t, tt.want, got, tt.kind)
	}
	_, err := RecordKey("treasury", 0, addr)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAccountAddressIsDeterministic(t *testing.T) {
	salt := SaltFor(DefaultProgramID)
	a := AccountAddress(salt, proposalKey(1))
	assert.Equal(t, a, AccountAddress(salt, proposalKey(1)))
	assert.NotEqual(t, a, AccountAddress(salt, proposalKey(2)))
	assert.NotEqual(t, a, AccountAddress(SaltFor("fork"), proposalKey(1)))
	assert.True(t, a.IsValid())
}
