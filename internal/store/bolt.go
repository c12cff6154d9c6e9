package store

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	syncerr "github.com/studyforge/studysync/internal/errors"
	"github.com/studyforge/studysync/internal/models"
)

const (
	// dataDirPerm is the permission mode for the data directory.
	dataDirPerm = fs.FileMode(0o700)

	// dataFilePerm is the permission mode for the database file.
	dataFilePerm = fs.FileMode(0o600)

	// openTimeout is the maximum time to wait for the bolt file lock.
	openTimeout = 5 * time.Second
)

var (
	appBucket       = []byte("app")
	syncConfigKey   = []byte("sync_config")
	lastSyncTimeKey = []byte("last_sync_time")
)

func recordsBucket(domain string) []byte {
	return []byte("domain:" + domain + ":records")
}

func tombstonesBucket(domain string) []byte {
	return []byte("domain:" + domain + ":tombstones")
}

// Bolt is the bbolt-backed store used by the daemon. Records are
// stored one key per id inside a bucket per domain namespace.
type Bolt struct {
	db *bolt.DB
}

// Open opens the database at its default location, creating it if it
// does not exist.
func Open(dataDir string) (*Bolt, error) {
	return OpenAt(filepath.Join(dataDir, "studysync.db"))
}

// OpenAt opens a database at the given path, creating it if it does
// not exist. Useful for tests that need an isolated database.
func OpenAt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), dataDirPerm); err != nil {
		return nil, &syncerr.StorageError{Op: "creating data directory", Err: err}
	}

	db, err := bolt.Open(path, dataFilePerm, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, &syncerr.StorageError{Op: "opening database", Err: err}
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(appBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, &syncerr.StorageError{Op: "initializing database", Err: err}
	}

	return &Bolt{db: db}, nil
}

// Close closes the database.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Load returns all raw records in a domain bucket. A missing bucket is
// an empty collection.
func (b *Bolt) Load(domain string) ([][]byte, error) {
	var records [][]byte

	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(recordsBucket(domain))
		if bkt == nil {
			return nil
		}

		return bkt.ForEach(func(_, v []byte) error {
			cp := make([]byte, len(v))
			copy(cp, v)
			records = append(records, cp)

			return nil
		})
	})
	if err != nil {
		return nil, &syncerr.StorageError{Op: "loading " + domain, Err: err}
	}

	return records, nil
}

// Save replaces a domain collection in a single update transaction.
// Records without an id field cannot be keyed and are skipped.
func (b *Bolt) Save(domain string, records [][]byte) error {
	name := recordsBucket(domain)

	err := b.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(name) != nil {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}

		bkt, err := tx.CreateBucket(name)
		if err != nil {
			return err
		}

		for _, raw := range records {
			id := rawRecordID(raw)
			if id == "" {
				continue
			}

			if err := bkt.Put([]byte(id), raw); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return &syncerr.StorageError{Op: "saving " + domain, Err: err}
	}

	return nil
}

// Upsert writes one record into a domain bucket.
func (b *Bolt) Upsert(domain, id string, data []byte) error {
	if id == "" {
		return &syncerr.StorageError{Op: "upserting into " + domain, Err: fmt.Errorf("empty record id")}
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(recordsBucket(domain))
		if err != nil {
			return err
		}

		return bkt.Put([]byte(id), data)
	})
	if err != nil {
		return &syncerr.StorageError{Op: "upserting into " + domain, Err: err}
	}

	return nil
}

// Remove deletes one record from a domain bucket.
func (b *Bolt) Remove(domain, id string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(recordsBucket(domain))
		if bkt == nil {
			return nil
		}

		return bkt.Delete([]byte(id))
	})
	if err != nil {
		return &syncerr.StorageError{Op: "removing from " + domain, Err: err}
	}

	return nil
}

// Tombstones returns the deletion markers for a domain.
func (b *Bolt) Tombstones(domain string) ([]models.Tombstone, error) {
	var tombs []models.Tombstone

	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(tombstonesBucket(domain))
		if bkt == nil {
			return nil
		}

		return bkt.ForEach(func(_, v []byte) error {
			var t models.Tombstone
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}

			tombs = append(tombs, t)

			return nil
		})
	})
	if err != nil {
		return nil, &syncerr.StorageError{Op: "loading tombstones for " + domain, Err: err}
	}

	return tombs, nil
}

// PutTombstone records a deletion marker for a domain record.
func (b *Bolt) PutTombstone(domain string, t models.Tombstone) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(tombstonesBucket(domain))
		if err != nil {
			return err
		}

		data, err := json.Marshal(t)
		if err != nil {
			return err
		}

		return bkt.Put([]byte(t.ID), data)
	})
	if err != nil {
		return &syncerr.StorageError{Op: "writing tombstone for " + domain, Err: err}
	}

	return nil
}

// DeleteTombstone removes a deletion marker.
func (b *Bolt) DeleteTombstone(domain, id string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(tombstonesBucket(domain))
		if bkt == nil {
			return nil
		}

		return bkt.Delete([]byte(id))
	})
	if err != nil {
		return &syncerr.StorageError{Op: "deleting tombstone for " + domain, Err: err}
	}

	return nil
}

// SyncConfig returns the persisted sync configuration, defaulting when
// nothing has been stored or the entry is unreadable.
func (b *Bolt) SyncConfig() (models.SyncConfig, error) {
	cfg := models.DefaultSyncConfig()

	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(appBucket).Get(syncConfigKey)
		if v == nil {
			return nil
		}

		return json.Unmarshal(v, &cfg)
	})
	if err != nil {
		return models.DefaultSyncConfig(), &syncerr.StorageError{Op: "loading sync config", Err: err}
	}

	return cfg, nil
}

// SetSyncConfig persists the sync configuration.
func (b *Bolt) SetSyncConfig(cfg models.SyncConfig) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(cfg)
		if err != nil {
			return err
		}

		return tx.Bucket(appBucket).Put(syncConfigKey, data)
	})
	if err != nil {
		return &syncerr.StorageError{Op: "saving sync config", Err: err}
	}

	return nil
}

// LastSyncTime returns the timestamp of the last completed sync.
func (b *Bolt) LastSyncTime() (int64, error) {
	var ms int64

	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(appBucket).Get(lastSyncTimeKey)
		if v == nil {
			return nil
		}

		parsed, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return err
		}

		ms = parsed

		return nil
	})
	if err != nil {
		return 0, &syncerr.StorageError{Op: "loading last sync time", Err: err}
	}

	return ms, nil
}

// SetLastSyncTime persists the timestamp of the last completed sync.
func (b *Bolt) SetLastSyncTime(ms int64) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(appBucket).Put(lastSyncTimeKey, []byte(strconv.FormatInt(ms, 10)))
	})
	if err != nil {
		return &syncerr.StorageError{Op: "saving last sync time", Err: err}
	}

	return nil
}
