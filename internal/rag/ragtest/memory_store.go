package ragtest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"docvault/internal/rag"
)

// MemoryStore is a rag.Store backed by maps.
type MemoryStore struct {
	// SaveErr, when set, is returned by SaveProfile without storing anything.
	SaveErr error

	mu       sync.RWMutex
	profiles []*rag.Profile
	byFile   map[uuid.UUID]*rag.Profile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byFile: map[uuid.UUID]*rag.Profile{}}
}

func (s *MemoryStore) ProfileExists(ctx context.Context, fileID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byFile[fileID]
	return ok, nil
}

func (s *MemoryStore) SaveProfile(ctx context.Context, profile *rag.Profile) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byFile[profile.FileID]; ok {
		return rag.ErrAlreadyIngested
	}
	cp := *profile
	cp.Pages = append([]rag.Page(nil), profile.Pages...)
	s.profiles = append(s.profiles, &cp)
	s.byFile[profile.FileID] = &cp
	return nil
}

func (s *MemoryStore) HasProfiles(ctx context.Context, organizationID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.OrganizationID == organizationID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ListPages(ctx context.Context, organizationID uuid.UUID) ([]rag.PageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []rag.PageRecord
	for _, p := range s.profiles {
		if p.OrganizationID != organizationID {
			continue
		}
		for _, page := range p.Pages {
			out = append(out, rag.PageRecord{
				PageID:     page.ID,
				ProfileID:  p.ID,
				FileID:     p.FileID,
				FileName:   p.FileName,
				PageNumber: page.PageNumber,
				Embeddings: page.Embeddings,
			})
		}
	}
	return out, nil
}

// Profile returns the stored profile of a file, or nil.
func (s *MemoryStore) Profile(fileID uuid.UUID) *rag.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byFile[fileID]
}

// Count returns the number of stored profiles and pages.
func (s *MemoryStore) Count() (profiles, pages int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		pages += len(p.Pages)
	}
	return len(s.profiles), pages
}
