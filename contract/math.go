package contract

import (
	"fmt"
	"math"

	"presence_dao/contract/dao"

	"github.com/holiman/uint256"
)

// addScore adds d to a and fails instead of wrapping.
func addScore(a, d dao.Score) (dao.Score, error) {
	if (d > 0 && a > math.MaxInt64-d) || (d < 0 && a < math.MinInt64-d) {
		return 0, fmt.Errorf("%w: %s + %s", ErrArithmeticOverflow, a, d)
	}
	return a + d, nil
}

func subScore(a, d dao.Score) (dao.Score, error) {
	if d == math.MinInt64 {
		return 0, fmt.Errorf("%w: %s - %s", ErrArithmeticOverflow, a, d)
	}
	return addScore(a, -d)
}

func incU64(v uint64) (uint64, error) {
	if v == math.MaxUint64 {
		return 0, fmt.Errorf("%w: counter", ErrArithmeticOverflow)
	}
	return v + 1, nil
}

func incU32(v uint32) (uint32, error) {
	if v == math.MaxUint32 {
		return 0, fmt.Errorf("%w: counter", ErrArithmeticOverflow)
	}
	return v + 1, nil
}

func decU32(v uint32) (uint32, error) {
	if v == 0 {
		return 0, fmt.Errorf("%w: counter underflow", ErrArithmeticOverflow)
	}
	return v - 1, nil
}

// unitsToScore converts a whole-unit input into a Score within MaxSeedUnits.
func unitsToScore(n int64) (dao.Score, error) {
	if n > MaxSeedUnits || n < -MaxSeedUnits {
		return 0, fmt.Errorf("%w: %d units out of range", ErrInvalidInput, n)
	}
	return dao.Units(n), nil
}

func clampNonNegative(s dao.Score) dao.Score {
	if s < 0 {
		return 0
	}
	return s
}

// VotingPower returns (p/P)·(c/C) in scaled units. Scores are clamped at zero,
// non-positive totals give zero power and the result never exceeds one unit.
func VotingPower(presence, competence, totalPresence, totalCompetence dao.Score) dao.Score {
	p := clampNonNegative(presence)
	c := clampNonNegative(competence)
	if totalPresence <= 0 || totalCompetence <= 0 || p == 0 || c == 0 {
		return 0
	}
	num := new(uint256.Int).Mul(uint256.NewInt(uint64(p)), uint256.NewInt(uint64(c)))
	num.Mul(num, uint256.NewInt(dao.Scale))
	den := new(uint256.Int).Mul(uint256.NewInt(uint64(totalPresence)), uint256.NewInt(uint64(totalCompetence)))
	q := new(uint256.Int).Div(num, den)
	if q.GtUint64(dao.Scale) {
		return dao.Scale
	}
	return dao.Score(q.Uint64())
}
