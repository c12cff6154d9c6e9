// Package domains binds each study-data domain (exam attempts,
// flashcard decks, chat sessions) to its store namespace, remote
// resource, and collection cap, and exposes the local mutators the
// host application calls. Local writes are immediate and durable; the
// sync orchestrator reconciles them with the remote store later.
package domains

import (
	"context"
	"log/slog"
	"time"

	"github.com/studyforge/studysync/internal/merge"
	"github.com/studyforge/studysync/internal/models"
	"github.com/studyforge/studysync/internal/remote"
	"github.com/studyforge/studysync/internal/store"
)

// Domain names double as store namespaces and remote path segments.
const (
	DomainExams = "exams"
	DomainDecks = "decks"
	DomainChats = "chats"
)

// Default collection caps. Oldest-by-updatedAt records beyond the cap
// are evicted during merge to bound storage growth.
const (
	DefaultExamCap = 100
	DefaultDeckCap = 50
	DefaultChatCap = 50
)

// notFoundError reports a mutation against an id missing from the
// local collection.
type notFoundError struct {
	domain string
	id     string
}

func (e *notFoundError) Error() string {
	return e.domain + " record " + e.id + " not found"
}

// Adapter is the generic glue for one domain. Concrete domain types
// embed it and add their own mutators.
type Adapter[T models.Record] struct {
	name     string
	maxSize  int
	store    store.Store
	resource *remote.Resource[T]
	logger   *slog.Logger
	now      func() time.Time
}

func newAdapter[T models.Record](name string, maxSize int, s store.Store, client *remote.Client, logger *slog.Logger, now func() time.Time) *Adapter[T] {
	if now == nil {
		now = time.Now
	}

	return &Adapter[T]{
		name:     name,
		maxSize:  maxSize,
		store:    s,
		resource: remote.NewResource[T](client, name),
		logger:   logger,
		now:      now,
	}
}

// Name returns the domain name.
func (a *Adapter[T]) Name() string { return a.name }

// All returns the local collection, newest first. Fail-open: an
// unreadable collection is empty.
func (a *Adapter[T]) All() []T {
	return store.LoadRecords[T](a.store, a.name, a.logger)
}

// Get returns the local record with the given id.
func (a *Adapter[T]) Get(id string) (T, bool) {
	for _, rec := range a.All() {
		if rec.RecordID() == id {
			return rec, true
		}
	}

	var zero T

	return zero, false
}

// put writes one record through to the store.
func (a *Adapter[T]) put(rec T) error {
	return store.UpsertRecord(a.store, a.name, rec)
}

// Delete removes a record locally and records a tombstone so a later
// sync propagates the deletion instead of resurrecting the record from
// the remote copy.
func (a *Adapter[T]) Delete(id string) error {
	if err := a.store.Remove(a.name, id); err != nil {
		return err
	}

	return a.store.PutTombstone(a.name, models.Tombstone{
		ID:        id,
		DeletedAt: a.now().UnixMilli(),
	})
}

// Sync reconciles the domain once: fetch the remote list, merge with
// the local collection under last-writer-wins, execute the upload
// plan, and persist the merged result in a single write. A remote list
// failure fails the whole domain for this cycle; individual upload
// failures are isolated inside the executor.
func (a *Adapter[T]) Sync(ctx context.Context) error {
	local := store.LoadRecords[T](a.store, a.name, a.logger)

	tombs, err := a.store.Tombstones(a.name)
	if err != nil {
		a.logger.Warn("tombstones unreadable, treating as none",
			slog.String("domain", a.name),
			slog.String("error", err.Error()),
		)

		tombs = nil
	}

	remoteList, err := a.resource.List(ctx)
	if err != nil {
		return err
	}

	plan := merge.Compute(local, remoteList, tombs, a.maxSize)

	for _, id := range plan.ClearTombstones {
		if err := a.store.DeleteTombstone(a.name, id); err != nil {
			a.logger.Warn("clearing tombstone",
				slog.String("domain", a.name),
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	deleted := merge.Execute(ctx, a.name, plan.Ops, a.resource, a.logger)

	for _, id := range deleted {
		if err := a.store.DeleteTombstone(a.name, id); err != nil {
			a.logger.Warn("clearing tombstone after remote delete",
				slog.String("domain", a.name),
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := store.SaveRecords(a.store, a.name, plan.Merged); err != nil {
		return err
	}

	a.logger.Info("domain reconciled",
		slog.String("domain", a.name),
		slog.Int("local", len(local)),
		slog.Int("remote", len(remoteList)),
		slog.Int("merged", len(plan.Merged)),
		slog.Int("uploads", len(plan.Ops)),
		slog.Int("evicted", len(plan.Evicted)),
	)

	return nil
}
