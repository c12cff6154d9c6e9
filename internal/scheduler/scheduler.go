// Package scheduler implements the spaced-repetition review schedule
// for flashcards. Advancing a card is a pure function of its current
// mastery level, the review outcome, and the clock, so review dates
// are reproducible.
package scheduler

import (
	"time"

	"github.com/studyforge/studysync/internal/models"
)

// reviewIntervalDays maps a mastery level to the number of days until
// the next review. Level 0 is due again immediately.
var reviewIntervalDays = [models.MasteryMax + 1]int{0, 1, 3, 7, 14, 30}

// Advance computes a card's new mastery level and next review time
// after one review. A correct answer moves the level up one step, an
// incorrect answer moves it down one step; the level never leaves
// [MasteryMin, MasteryMax]. Out-of-range input levels are clamped
// before stepping.
func Advance(masteryLevel int, wasCorrect bool, now time.Time) (newLevel int, nextReviewAt time.Time) {
	level := clamp(masteryLevel)

	if wasCorrect {
		level = clamp(level + 1)
	} else {
		level = clamp(level - 1)
	}

	return level, now.AddDate(0, 0, reviewIntervalDays[level])
}

// Due reports whether a card with the given next review timestamp
// (epoch ms, nil meaning never scheduled) is eligible for review.
func Due(nextReviewAt *int64, now time.Time) bool {
	if nextReviewAt == nil {
		return true
	}

	return *nextReviewAt <= now.UnixMilli()
}

func clamp(level int) int {
	if level < models.MasteryMin {
		return models.MasteryMin
	}

	if level > models.MasteryMax {
		return models.MasteryMax
	}

	return level
}
