package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSupportField(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"true", true},
		{"1", true},
		{" YES ", true},
		{"y", true},
		{"for", true},
		{"false", false},
		{"0", false},
		{"No", false},
		{"n", false},
		{"against", false},
	}
	for _, tc := range cases {
		got, err := parseSupportField(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "maybe", "2", "abstain"} {
		_, err := parseSupportField(bad)
		assert.ErrorIs(t, err, ErrInvalidInput, bad)
	}
}

func TestVotePayloadRoundTrip(t *testing.T) {
	for _, support := range []bool{true, false} {
		args, err := decodeVoteArgs(VoteArgs{ProposalID: 4, Support: support}.Payload())
		require.NoError(t, err)
		assert.Equal(t, uint64(4), args.ProposalID)
		assert.Equal(t, support, args.Support)
	}
}
