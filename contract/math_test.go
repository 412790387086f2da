package contract

import (
	"math"
	"testing"

	"presence_dao/contract/dao"

	"github.com/stretchr/testify/assert"
)

func TestAddScoreOverflow(t *testing.T) {
	_, err := addScore(math.MaxInt64, 1)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
	_, err = addScore(math.MinInt64, -1)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
	_, err = subScore(0, math.MinInt64)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)

	v, err := subScore(dao.Units(1), dao.Units(3))
	assert.NoError(t, err)
	assert.Equal(t, dao.Units(-2), v)
}

func TestCounters(t *testing.T) {
	_, err := incU64(math.MaxUint64)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
	_, err = incU32(math.MaxUint32)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
	_, err = decU32(0)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
	n, err := decU32(3)
	assert.NoError(t, err)
	assert.Equal(t, uint32(2), n)
}

func TestUnitsToScore(t *testing.T) {
	s, err := unitsToScore(MaxSeedUnits)
	assert.NoError(t, err)
	assert.Equal(t, dao.Units(MaxSeedUnits), s)
	_, err = unitsToScore(MaxSeedUnits + 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVotingPower(t *testing.T) {
	u := dao.Units
	tests := []struct {
		name     string
		p, c     dao.Score
		pt, ct   dao.Score
		expected dao.Score
	}{
		{"third of a third", u(3), u(10), u(9), u(30), 111_111_111},
		{"sole member", u(5), u(5), u(5), u(5), dao.Scale},
		{"half presence", u(1), u(2), u(2), u(2), 500_000_000},
		{"negative presence", u(-1), u(10), u(9), u(30), 0},
		{"zero competence", u(3), 0, u(9), u(30), 0},
		{"non-positive total", u(3), u(10), u(-1), u(30), 0},
		{"score above total is capped", u(5), u(5), u(1), u(5), dao.Scale},
		{"large scores stay exact", u(1_000_000), u(1_000_000), u(2_000_000), u(4_000_000), 125_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, VotingPower(tt.p, tt.c, tt.pt, tt.ct))
		})
	}
}
