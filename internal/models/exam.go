package models

import "fmt"

// ExamRecord is one completed exam attempt.
type ExamRecord struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Score           int    `json:"score"`
	TotalQuestions  int    `json:"totalQuestions"`
	DurationSeconds int    `json:"durationSeconds"`
	CreatedAt       int64  `json:"createdAt"`
	UpdatedAt       int64  `json:"updatedAt"`
}

func (e ExamRecord) RecordID() string    { return e.ID }
func (e ExamRecord) LastModified() int64 { return e.UpdatedAt }

func (e ExamRecord) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("missing id")
	}

	if e.UpdatedAt <= 0 {
		return fmt.Errorf("missing updatedAt")
	}

	if e.Score < 0 || e.TotalQuestions < 0 {
		return fmt.Errorf("negative score or question count")
	}

	if e.TotalQuestions > 0 && e.Score > e.TotalQuestions {
		return fmt.Errorf("score %d exceeds total questions %d", e.Score, e.TotalQuestions)
	}

	return nil
}
