package models

// Record is the common contract every syncable domain type satisfies.
// IDs are opaque, globally unique strings assigned client-side at
// creation and never reassigned. LastModified is an epoch-millisecond
// timestamp, strictly non-decreasing across mutations of the same id.
type Record interface {
	RecordID() string
	LastModified() int64
	Validate() error
}

// Tombstone marks a local deletion so a later sync can distinguish
// "deleted here" from "never existed remotely". DeletedAt participates
// in the same last-writer-wins comparison as record timestamps: a
// remote copy modified after the deletion resurrects the record and
// clears the tombstone.
type Tombstone struct {
	ID        string `json:"id"`
	DeletedAt int64  `json:"deletedAt"`
}
