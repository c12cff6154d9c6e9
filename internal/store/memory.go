package store

import (
	"sync"

	"github.com/studyforge/studysync/internal/models"
)

// Memory is a map-backed store with the same semantics as Bolt. The
// merge engine and orchestrator run against it unmodified, which is
// what the tests do.
type Memory struct {
	mu         sync.Mutex
	records    map[string]map[string][]byte
	tombstones map[string]map[string]models.Tombstone
	syncConfig *models.SyncConfig
	lastSync   int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records:    make(map[string]map[string][]byte),
		tombstones: make(map[string]map[string]models.Tombstone),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Load(domain string) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out [][]byte

	for _, v := range m.records[domain] {
		cp := make([]byte, len(v))
		copy(cp, v)
		out = append(out, cp)
	}

	return out, nil
}

func (m *Memory) Save(domain string, records [][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll := make(map[string][]byte, len(records))

	for _, raw := range records {
		id := rawRecordID(raw)
		if id == "" {
			continue
		}

		cp := make([]byte, len(raw))
		copy(cp, raw)
		coll[id] = cp
	}

	m.records[domain] = coll

	return nil
}

func (m *Memory) Upsert(domain, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.records[domain] == nil {
		m.records[domain] = make(map[string][]byte)
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	m.records[domain][id] = cp

	return nil
}

func (m *Memory) Remove(domain, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records[domain], id)

	return nil
}

func (m *Memory) Tombstones(domain string) ([]models.Tombstone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Tombstone
	for _, t := range m.tombstones[domain] {
		out = append(out, t)
	}

	return out, nil
}

func (m *Memory) PutTombstone(domain string, t models.Tombstone) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tombstones[domain] == nil {
		m.tombstones[domain] = make(map[string]models.Tombstone)
	}

	m.tombstones[domain][t.ID] = t

	return nil
}

func (m *Memory) DeleteTombstone(domain, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tombstones[domain], id)

	return nil
}

func (m *Memory) SyncConfig() (models.SyncConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.syncConfig == nil {
		return models.DefaultSyncConfig(), nil
	}

	return *m.syncConfig, nil
}

func (m *Memory) SetSyncConfig(cfg models.SyncConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.syncConfig = &cfg

	return nil
}

func (m *Memory) LastSyncTime() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastSync, nil
}

func (m *Memory) SetLastSyncTime(ms int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastSync = ms

	return nil
}
