package candidateRepo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"huddle/models"
)

// SeedCandidateRepo is an in-memory CandidateRepository, loaded from a JSON
// seed file when no database is configured.
type SeedCandidateRepo struct {
	mu         sync.RWMutex
	candidates map[string]models.Participant
}

func NewSeedCandidateRepo(candidates []models.Participant) *SeedCandidateRepo {
	r := &SeedCandidateRepo{candidates: make(map[string]models.Participant, len(candidates))}
	for _, c := range candidates {
		r.candidates[c.ID] = c
	}
	return r
}

// LoadSeedFile reads a JSON array of candidates.
func LoadSeedFile(path string) (*SeedCandidateRepo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read candidate seed %s: %w", path, err)
	}
	var candidates []models.Participant
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, fmt.Errorf("failed to parse candidate seed %s: %w", path, err)
	}
	return NewSeedCandidateRepo(candidates), nil
}

// All returns every candidate ordered by id.
func (r *SeedCandidateRepo) All() []models.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Participant, 0, len(r.candidates))
	for _, c := range r.candidates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *SeedCandidateRepo) Search(_ context.Context, criteria CandidateSearchCriteria) ([]models.Participant, error) {
	var out []models.Participant
	for _, c := range r.All() {
		if criteria.ExcludeID != "" && c.ID == criteria.ExcludeID {
			continue
		}
		if criteria.Gender != "" && !strings.EqualFold(c.Gender, criteria.Gender) {
			continue
		}
		if !c.DoesActivity(criteria.Activity) {
			continue
		}
		out = append(out, c)
		if criteria.Limit > 0 && len(out) == criteria.Limit {
			break
		}
	}
	return out, nil
}

func (r *SeedCandidateRepo) GetByID(_ context.Context, id string) (*models.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.candidates[id]
	if !ok {
		return nil, ErrCandidateNotFound
	}
	return &c, nil
}

func (r *SeedCandidateRepo) Upsert(_ context.Context, p models.Participant) error {
	r.mu.Lock()
	r.candidates[p.ID] = p
	r.mu.Unlock()
	return nil
}
