package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdvance(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		level      int
		wasCorrect bool
		wantLevel  int
		wantDays   int
	}{
		{"correct from 0", 0, true, 1, 1},
		{"correct from 1", 1, true, 2, 3},
		{"correct from 2", 2, true, 3, 7},
		{"correct from 3", 3, true, 4, 14},
		{"correct from 4", 4, true, 5, 30},
		{"correct at ceiling stays 5", 5, true, 5, 30},
		{"incorrect from 5", 5, false, 4, 14},
		{"incorrect from 3", 3, false, 2, 7},
		{"incorrect from 1", 1, false, 0, 0},
		{"incorrect at floor stays 0", 0, false, 0, 0},
		{"out of range high is clamped", 99, true, 5, 30},
		{"out of range low is clamped", -3, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, next := Advance(tt.level, tt.wasCorrect, now)

			assert.Equal(t, tt.wantLevel, level)
			assert.Equal(t, now.AddDate(0, 0, tt.wantDays), next)
		})
	}
}

func TestAdvance_Deterministic(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for level := 0; level <= 5; level++ {
		for _, correct := range []bool{true, false} {
			l1, n1 := Advance(level, correct, now)
			l2, n2 := Advance(level, correct, now)

			assert.Equal(t, l1, l2)
			assert.Equal(t, n1, n2)
		}
	}
}

func TestAdvance_MovesAtMostOneStep(t *testing.T) {
	now := time.Now()

	for level := 0; level <= 5; level++ {
		up, _ := Advance(level, true, now)
		down, _ := Advance(level, false, now)

		assert.LessOrEqual(t, up-level, 1)
		assert.LessOrEqual(t, level-down, 1)
		assert.GreaterOrEqual(t, up, level)
		assert.LessOrEqual(t, down, level)
	}
}

func TestDue(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour).UnixMilli()
	future := now.Add(time.Hour).UnixMilli()
	exact := now.UnixMilli()

	assert.True(t, Due(nil, now), "never scheduled is due")
	assert.True(t, Due(&past, now), "past review date is due")
	assert.True(t, Due(&exact, now), "review date right now is due")
	assert.False(t, Due(&future, now), "future review date is not due")
}
