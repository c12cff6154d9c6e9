// Package store provides the durable storage port for studysync: a
// key-value abstraction over named collections of JSON-serialized
// records, with a bbolt-backed implementation for the daemon and an
// in-memory implementation for tests.
package store

import (
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/studyforge/studysync/internal/models"
)

// rawRecordID extracts the id field from a raw JSON record, or ""
// when the record has none.
func rawRecordID(raw []byte) string {
	return gjson.GetBytes(raw, "id").String()
}

// Store is the storage port. Each domain owns its own namespace; no
// two domains share one. Writes are durable when the call returns.
type Store interface {
	// Load returns the raw JSON records of a domain collection. A
	// missing collection is an empty list, not an error.
	Load(domain string) ([][]byte, error)

	// Save replaces a domain collection in a single atomic write.
	Save(domain string, records [][]byte) error

	// Upsert writes one record into a domain collection.
	Upsert(domain, id string, data []byte) error

	// Remove deletes one record from a domain collection.
	Remove(domain, id string) error

	// Tombstones returns the deletion markers recorded for a domain.
	Tombstones(domain string) ([]models.Tombstone, error)
	PutTombstone(domain string, t models.Tombstone) error
	DeleteTombstone(domain, id string) error

	// SyncConfig returns the persisted sync configuration, or the
	// default when nothing has been stored yet.
	SyncConfig() (models.SyncConfig, error)
	SetSyncConfig(cfg models.SyncConfig) error

	// LastSyncTime is the epoch-ms timestamp of the last completed
	// sync, 0 meaning never synced.
	LastSyncTime() (int64, error)
	SetLastSyncTime(ms int64) error

	Close() error
}

// LoadRecords decodes a domain collection into typed records, sorted
// newest first. It fails open: a storage error yields an empty list
// with a warning, and a record that fails to decode or validate is
// dropped with a warning while the rest are kept.
func LoadRecords[T models.Record](s Store, domain string, logger *slog.Logger) []T {
	raws, err := s.Load(domain)
	if err != nil {
		logger.Warn("local collection unreadable, treating as empty",
			slog.String("domain", domain),
			slog.String("error", err.Error()),
		)

		return nil
	}

	records := make([]T, 0, len(raws))

	for _, raw := range raws {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			logger.Warn("dropping undecodable local record",
				slog.String("domain", domain),
				slog.String("error", err.Error()),
			)

			continue
		}

		if err := rec.Validate(); err != nil {
			logger.Warn("dropping invalid local record",
				slog.String("domain", domain),
				slog.String("id", rec.RecordID()),
				slog.String("error", err.Error()),
			)

			continue
		}

		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].LastModified() > records[j].LastModified()
	})

	return records
}

// SaveRecords marshals typed records and replaces the domain
// collection in one write.
func SaveRecords[T models.Record](s Store, domain string, records []T) error {
	raws := make([][]byte, 0, len(records))

	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}

		raws = append(raws, data)
	}

	return s.Save(domain, raws)
}

// UpsertRecord marshals one typed record and writes it through.
func UpsertRecord[T models.Record](s Store, domain string, rec T) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return s.Upsert(domain, rec.RecordID(), data)
}
