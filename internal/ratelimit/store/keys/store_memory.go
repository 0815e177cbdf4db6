package keys

import (
	"context"
	"sync"

	"trustgraph/internal/ratelimit/models"
)

// InMemoryKeyStore holds API-key records in a process-wide map. Records are
// lost on restart; callers accepting that durability gap can use this as-is,
// others replace it behind the KeyStore port.
type InMemoryKeyStore struct {
	mu      sync.RWMutex
	records map[string]models.APIKeyRecord
}

// New creates an empty in-memory key store.
func New() *InMemoryKeyStore {
	return &InMemoryKeyStore{records: make(map[string]models.APIKeyRecord)}
}

// Put inserts or overwrites a record. No uniqueness enforcement beyond map
// overwrite semantics.
func (s *InMemoryKeyStore) Put(_ context.Context, record *models.APIKeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Key] = *record
	return nil
}

func (s *InMemoryKeyStore) Get(_ context.Context, key string) (*models.APIKeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.records[key]; ok {
		out := record
		return &out, nil
	}
	return nil, nil
}

func (s *InMemoryKeyStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return false, nil
	}
	delete(s.records, key)
	return true, nil
}

func (s *InMemoryKeyStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]models.APIKeyRecord)
	return nil
}

func (s *InMemoryKeyStore) Close() error {
	return nil
}
