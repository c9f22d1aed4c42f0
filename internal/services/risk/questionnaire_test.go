package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
)

func TestProfileFromScoreBoundaries(t *testing.T) {
	cases := map[int]models.RiskProfile{
		0:   models.ProfileConservative,
		14:  models.ProfileConservative,
		15:  models.ProfileModerate,
		24:  models.ProfileModerate,
		25:  models.ProfileAggressive,
		100: models.ProfileAggressive,
		-1:  models.ProfileModerate,
		101: models.ProfileModerate,
	}
	for score, want := range cases {
		assert.Equal(t, want, ProfileFromScore(score), "score %d", score)
	}
}

func TestAssess(t *testing.T) {
	p, total, err := Assess([]int{1, 1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.Equal(t, models.ProfileConservative, p)

	p, total, err = Assess([]int{2, 2, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, 22, total)
	assert.Equal(t, models.ProfileModerate, p)

	p, total, err = Assess([]int{3, 3, 3, 3})
	require.NoError(t, err)
	assert.Equal(t, 38, total)
	assert.Equal(t, models.ProfileAggressive, p)
}

func TestScoreRejectsBadAnswers(t *testing.T) {
	_, err := Score([]int{1, 2})
	assert.ErrorIs(t, err, domsvc.ErrInvalidConfiguration)
	_, err = Score([]int{1, 2, 4, 1})
	assert.ErrorIs(t, err, domsvc.ErrInvalidConfiguration)
}
