// internal/store/store.go
package store

import (
	"sync"

	"opportunity-funnel/internal/models"
)

// Store holds the active profile's opportunity set in memory. It is
// the source of truth for funnel state between syncs from the remote
// opportunity service. Iteration preserves insertion order so batch
// operations process items in a stable order.
type Store struct {
	mu       sync.RWMutex
	byKey    map[string]*models.Opportunity
	order    []string
	metadata models.DiscoveryMetadata
}

func New() *Store {
	return &Store{
		byKey: make(map[string]*models.Opportunity),
	}
}

// ReplaceAll swaps the whole set, used when syncing from the server.
func (s *Store) ReplaceAll(opportunities []models.Opportunity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byKey = make(map[string]*models.Opportunity, len(opportunities))
	s.order = s.order[:0]
	for i := range opportunities {
		opp := opportunities[i]
		key := opp.Key()
		if key == "" {
			continue
		}
		if _, exists := s.byKey[key]; !exists {
			s.order = append(s.order, key)
		}
		s.byKey[key] = &opp
	}
}

// Upsert inserts or overwrites a single record.
func (s *Store) Upsert(opportunity models.Opportunity) {
	key := opportunity.Key()
	if key == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byKey[key]; !exists {
		s.order = append(s.order, key)
	}
	s.byKey[key] = &opportunity
}

// Get returns a copy of the record for the key.
func (s *Store) Get(key string) (models.Opportunity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	opp, ok := s.byKey[key]
	if !ok {
		return models.Opportunity{}, false
	}
	return *opp, true
}

// All returns copies of every record in insertion order.
func (s *Store) All() []models.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Opportunity, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.byKey[key])
	}
	return out
}

// ByStage returns copies of records in the given stage, in insertion order.
func (s *Store) ByStage(stage models.Stage) []models.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Opportunity, 0, len(s.order))
	for _, key := range s.order {
		if s.byKey[key].CurrentStage == stage {
			out = append(out, *s.byKey[key])
		}
	}
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

// Summary recomputes the funnel summary from the current set. It is
// never patched incrementally, so the per-category counts cannot
// drift from the records.
func (s *Store) Summary() models.FunnelSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var summary models.FunnelSummary
	summary.TotalFound = len(s.byKey)
	for _, opp := range s.byKey {
		switch opp.CategoryLevel {
		case models.CategoryQualified:
			summary.Qualified++
		case models.CategoryReview:
			summary.Review++
		case models.CategoryConsider:
			summary.Consider++
		case models.CategoryLowPriority:
			summary.LowPriority++
		}
		if opp.WebSearchComplete {
			summary.EnrichmentComplete++
		}
	}
	return summary
}

// SetDiscoveryMetadata overwrites the profile's discovery metadata.
func (s *Store) SetDiscoveryMetadata(meta models.DiscoveryMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = meta
}

// DiscoveryMetadata returns the last stored discovery metadata.
func (s *Store) DiscoveryMetadata() models.DiscoveryMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata
}
