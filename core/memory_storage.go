package core

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]RegistrationRecord
	now     func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]RegistrationRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStorage) Init(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = make(map[string]RegistrationRecord)
	}
	return nil
}

func (s *MemoryStorage) Contains(_ context.Context, peerID string) (bool, error) {
	s.mu.RLock()
	record, ok := s.records[peerID]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return record.IsRegistered, nil
}

func (s *MemoryStorage) Upsert(_ context.Context, peerID string, isRegistered bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = make(map[string]RegistrationRecord)
	}
	now := s.now()
	record, ok := s.records[peerID]
	if !ok {
		record = RegistrationRecord{PeerID: peerID, CreatedAt: now}
	}
	record.IsRegistered = isRegistered
	record.UpdatedAt = now
	s.records[peerID] = record
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, peerID string) error {
	s.mu.Lock()
	delete(s.records, peerID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) List(context.Context) ([]RegistrationRecord, error) {
	s.mu.RLock()
	out := make([]RegistrationRecord, 0, len(s.records))
	for _, record := range s.records {
		if record.IsRegistered {
			out = append(out, record)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].PeerID < out[j].PeerID
	})
	return out, nil
}

var (
	_ Storage = (*MemoryStorage)(nil)
	_ Lister  = (*MemoryStorage)(nil)
)
