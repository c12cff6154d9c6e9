// Package merge implements the reconciliation engine for one domain
// collection. Given the local and remote lists it computes the merged
// collection plus the set of upload side effects, using last-writer-wins
// on the updatedAt timestamp. The computation is pure: running it twice
// with the same remote snapshot yields the same local state, and the
// outcome depends only on timestamps, never on arrival order.
package merge

import (
	"sort"

	"github.com/studyforge/studysync/internal/models"
)

// OpKind identifies an upload side effect.
type OpKind int

const (
	// OpCreate uploads a record the remote side has never seen.
	OpCreate OpKind = iota

	// OpUpdate uploads a local record that won the timestamp comparison.
	OpUpdate

	// OpDelete removes a record remotely because a local tombstone is
	// at least as new as the remote copy.
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Op is one scheduled upload. Record is the zero value for OpDelete.
type Op[T models.Record] struct {
	Kind   OpKind
	ID     string
	Record T
}

// Plan is the outcome of reconciling one domain.
type Plan[T models.Record] struct {
	// Merged is the reconciled collection, newest first, truncated to
	// the domain cap.
	Merged []T

	// Ops are the uploads to execute, ordered by record id for
	// reproducibility.
	Ops []Op[T]

	// ClearTombstones lists tombstone ids consumed by this merge: the
	// remote copy was modified after the local deletion, so the record
	// is resurrected and the marker dropped.
	ClearTombstones []string

	// Evicted lists ids dropped from the merged collection by the
	// size cap (oldest by updatedAt first).
	Evicted []string
}

// Compute reconciles a local and a remote collection.
//
// Classification per id:
//   - local only: keep, schedule a remote create
//   - remote only: adopt verbatim unless a tombstone at least as new
//     as the remote copy exists, in which case schedule a remote delete
//   - both: the strictly greater updatedAt wins; a local win schedules
//     a remote update, a remote win or a tie adopts the remote value
//
// The merged result is sorted by updatedAt descending and truncated to
// maxSize (0 or negative means unbounded).
func Compute[T models.Record](local, remote []T, tombstones []models.Tombstone, maxSize int) Plan[T] {
	localByID := indexByID(local)
	remoteByID := indexByID(remote)

	tombByID := make(map[string]models.Tombstone, len(tombstones))
	for _, t := range tombstones {
		tombByID[t.ID] = t
	}

	ids := make([]string, 0, len(localByID)+len(remoteByID))
	seen := make(map[string]struct{}, len(localByID)+len(remoteByID))

	for _, rec := range local {
		if _, ok := seen[rec.RecordID()]; !ok {
			seen[rec.RecordID()] = struct{}{}
			ids = append(ids, rec.RecordID())
		}
	}

	for _, rec := range remote {
		if _, ok := seen[rec.RecordID()]; !ok {
			seen[rec.RecordID()] = struct{}{}
			ids = append(ids, rec.RecordID())
		}
	}

	sort.Strings(ids)

	var plan Plan[T]

	for _, id := range ids {
		loc, hasLocal := localByID[id]
		rem, hasRemote := remoteByID[id]
		tomb, hasTomb := tombByID[id]

		switch {
		case hasLocal && hasRemote:
			// A record present locally cannot also be deleted; any
			// leftover tombstone is stale.
			if hasTomb {
				plan.ClearTombstones = append(plan.ClearTombstones, id)
			}

			if loc.LastModified() > rem.LastModified() {
				plan.Merged = append(plan.Merged, loc)
				plan.Ops = append(plan.Ops, Op[T]{Kind: OpUpdate, ID: id, Record: loc})
			} else {
				plan.Merged = append(plan.Merged, rem)
			}

		case hasLocal:
			if hasTomb {
				plan.ClearTombstones = append(plan.ClearTombstones, id)
			}

			plan.Merged = append(plan.Merged, loc)
			plan.Ops = append(plan.Ops, Op[T]{Kind: OpCreate, ID: id, Record: loc})

		default: // remote only
			if hasTomb && tomb.DeletedAt >= rem.LastModified() {
				// Deleted locally after the remote copy was last
				// touched: propagate the delete instead of
				// resurrecting. The tombstone stays until the remote
				// delete succeeds.
				plan.Ops = append(plan.Ops, Op[T]{Kind: OpDelete, ID: id})
				continue
			}

			if hasTomb {
				plan.ClearTombstones = append(plan.ClearTombstones, id)
			}

			plan.Merged = append(plan.Merged, rem)
		}
	}

	sort.SliceStable(plan.Merged, func(i, j int) bool {
		return plan.Merged[i].LastModified() > plan.Merged[j].LastModified()
	})

	if maxSize > 0 && len(plan.Merged) > maxSize {
		for _, rec := range plan.Merged[maxSize:] {
			plan.Evicted = append(plan.Evicted, rec.RecordID())
		}

		plan.Merged = plan.Merged[:maxSize]
	}

	return plan
}

func indexByID[T models.Record](records []T) map[string]T {
	m := make(map[string]T, len(records))
	for _, rec := range records {
		m[rec.RecordID()] = rec
	}

	return m
}
