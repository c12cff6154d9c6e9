package merge

import (
	"context"
	"log/slog"
	"sync"

	"github.com/studyforge/studysync/internal/models"
)

// Uploader is the slice of the remote port the executor needs.
type Uploader[T any] interface {
	Create(ctx context.Context, rec T) (T, error)
	Update(ctx context.Context, id string, rec T) (T, error)
	Delete(ctx context.Context, id string) error
}

// Execute runs the plan's upload ops concurrently. Ops touch distinct
// record ids, so they are independent; each runs in its own failure
// boundary — a failing upload is logged and skipped, it never aborts
// the batch. Returns the ids whose remote delete succeeded, so the
// caller can clear the corresponding tombstones.
func Execute[T models.Record](ctx context.Context, domain string, ops []Op[T], up Uploader[T], logger *slog.Logger) []string {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		deleted []string
	)

	for _, op := range ops {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if err := runOp(ctx, op, up); err != nil {
				logger.Warn("upload failed, skipping",
					slog.String("domain", domain),
					slog.String("op", op.Kind.String()),
					slog.String("id", op.ID),
					slog.String("error", err.Error()),
				)

				return
			}

			if op.Kind == OpDelete {
				mu.Lock()
				deleted = append(deleted, op.ID)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	return deleted
}

func runOp[T models.Record](ctx context.Context, op Op[T], up Uploader[T]) error {
	switch op.Kind {
	case OpCreate:
		_, err := up.Create(ctx, op.Record)
		return err
	case OpUpdate:
		_, err := up.Update(ctx, op.ID, op.Record)
		return err
	default:
		return up.Delete(ctx, op.ID)
	}
}
