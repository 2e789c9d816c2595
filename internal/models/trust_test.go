package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestTrustLevelForScore(t *testing.T) {
	cases := []struct {
		score int
		level int
	}{
		{0, TrustLevelNew},
		{4, TrustLevelNew},
		{5, TrustLevelBasic},
		{19, TrustLevelBasic},
		{20, TrustLevelEstablished},
		{49, TrustLevelEstablished},
		{50, TrustLevelTrusted},
		{99, TrustLevelTrusted},
		{100, TrustLevelHigh},
		{10000, TrustLevelHigh},
	}
	for _, c := range cases {
		assert.Equal(t, c.level, TrustLevelForScore(c.score), "score %d", c.score)
	}
}

// 分数越高等级不会更低
func TestProperty_TrustLevelMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.IntRange(0, 500).Draw(t, "a")
		b := rapid.IntRange(0, 500).Draw(t, "b")
		if a > b {
			a, b = b, a
		}
		if TrustLevelForScore(a) > TrustLevelForScore(b) {
			t.Fatalf("level decreased: score %d -> L%d, score %d -> L%d",
				a, TrustLevelForScore(a), b, TrustLevelForScore(b))
		}
	})
}

func TestDefaultScoreChange(t *testing.T) {
	assert.Equal(t, 1, DefaultScoreChange(TrustEventProfileCreated))
	assert.Equal(t, 5, DefaultScoreChange(TrustEventPhoneVerified))
	assert.Equal(t, 10, DefaultScoreChange(TrustEventIDVerified))
	assert.Equal(t, 3, DefaultScoreChange(TrustEventPaymentCompleted))
	assert.Equal(t, 2, DefaultScoreChange(TrustEventGroupCreated))
	assert.Equal(t, 1, DefaultScoreChange(TrustEventGroupJoined))
	assert.Equal(t, 5, DefaultScoreChange(TrustEventGroupCompleted))
	assert.Equal(t, -10, DefaultScoreChange(TrustEventViolationReported))
	assert.Equal(t, -20, DefaultScoreChange(TrustEventPenaltyApplied))
	assert.Equal(t, 0, DefaultScoreChange("unknown"))
}
