package domains

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/studyforge/studysync/internal/models"
	"github.com/studyforge/studysync/internal/remote"
	"github.com/studyforge/studysync/internal/store"
)

// Exams is the domain adapter for completed exam attempts.
type Exams struct {
	*Adapter[models.ExamRecord]
}

// NewExams creates the exams adapter. maxSize <= 0 uses the default cap.
func NewExams(s store.Store, client *remote.Client, maxSize int, logger *slog.Logger, now func() time.Time) *Exams {
	if maxSize <= 0 {
		maxSize = DefaultExamCap
	}

	return &Exams{newAdapter[models.ExamRecord](DomainExams, maxSize, s, client, logger, now)}
}

// RecordAttempt stores a finished exam attempt locally with a fresh id
// and timestamps. The write is durable before the call returns; sync
// uploads it later.
func (e *Exams) RecordAttempt(title string, score, totalQuestions, durationSeconds int) (models.ExamRecord, error) {
	now := e.now().UnixMilli()

	rec := models.ExamRecord{
		ID:              uuid.NewString(),
		Title:           title,
		Score:           score,
		TotalQuestions:  totalQuestions,
		DurationSeconds: durationSeconds,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := rec.Validate(); err != nil {
		return models.ExamRecord{}, err
	}

	if err := e.put(rec); err != nil {
		return models.ExamRecord{}, err
	}

	return rec, nil
}

// Rename updates an attempt's title and bumps its timestamp so the
// change wins the next merge.
func (e *Exams) Rename(id, title string) error {
	rec, ok := e.Get(id)
	if !ok {
		return &notFoundError{domain: DomainExams, id: id}
	}

	rec.Title = title
	rec.UpdatedAt = e.now().UnixMilli()

	return e.put(rec)
}
