package attestation

import (
	"context"
	"sync"
	"time"

	"github.com/paw-chain/oracle-feeder/pkg/types"
)

// MemoryStore keeps records in memory. Used in tests and when no database is
// configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]types.AttestationRecord
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]types.AttestationRecord)}
}

func (s *MemoryStore) Write(_ context.Context, record types.AttestationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.BatchID] = append([]types.AttestationRecord{record}, s.records[record.BatchID]...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, batchID string) ([]types.AttestationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.AttestationRecord, len(s.records[batchID]))
	copy(out, s.records[batchID])
	return out, nil
}

func (s *MemoryStore) CleanupOldAttestations(_ context.Context, days int) (int, error) {
	if days <= 0 {
		days = DefaultRetentionDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for batchID, records := range s.records {
		kept := records[:0]
		for _, r := range records {
			if r.CreatedAt.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			delete(s.records, batchID)
			continue
		}
		s.records[batchID] = kept
	}
	return removed, nil
}

func (s *MemoryStore) Close() error { return nil }
