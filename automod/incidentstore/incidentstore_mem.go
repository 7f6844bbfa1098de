package incidentstore

import (
	"context"
	"sync"
)

type MemIncidentStore struct {
	lk        sync.RWMutex
	incidents map[string][]Incident
	mentions  map[string][]VictimMention
	rationale map[int64]string
}

var _ IncidentStore = (*MemIncidentStore)(nil)
var _ RationaleStore = (*MemIncidentStore)(nil)

func NewMemIncidentStore() *MemIncidentStore {
	return &MemIncidentStore{
		incidents: make(map[string][]Incident),
		mentions:  make(map[string][]VictimMention),
		rationale: make(map[int64]string),
	}
}

func (s *MemIncidentStore) AddIncident(ctx context.Context, inc Incident) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.incidents[inc.ActorID] = append(s.incidents[inc.ActorID], inc)
	return nil
}

func (s *MemIncidentStore) AddVictimMention(ctx context.Context, vm VictimMention) error {
	key := NormalizeName(vm.VictimName)
	s.lk.Lock()
	defer s.lk.Unlock()
	s.mentions[key] = append(s.mentions[key], vm)
	return nil
}

func (s *MemIncidentStore) ListIncidents(ctx context.Context, actorID string) ([]Incident, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	out := make([]Incident, len(s.incidents[actorID]))
	copy(out, s.incidents[actorID])
	return out, nil
}

func (s *MemIncidentStore) ListVictimMentions(ctx context.Context, victimName string) ([]VictimMention, error) {
	key := NormalizeName(victimName)
	s.lk.RLock()
	defer s.lk.RUnlock()
	out := make([]VictimMention, len(s.mentions[key]))
	copy(out, s.mentions[key])
	return out, nil
}

func (s *MemIncidentStore) SaveRationale(ctx context.Context, auditID int64, rationale string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.rationale[auditID] = rationale
	return nil
}

func (s *MemIncidentStore) GetRationale(ctx context.Context, auditID int64) (string, bool, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	val, ok := s.rationale[auditID]
	return val, ok, nil
}
