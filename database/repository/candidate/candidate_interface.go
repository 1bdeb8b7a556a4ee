package candidateRepo

import (
	"context"

	"huddle/models"
)

// CandidateSearchCriteria is the coarse, index-friendly part of a match. The
// matching service applies the finer filters in memory.
type CandidateSearchCriteria struct {
	Activity  string
	Gender    string
	ExcludeID string
	Limit     int
}

// CandidateRepository defines candidate data access.
type CandidateRepository interface {
	// Search returns candidates matching the coarse criteria.
	Search(ctx context.Context, criteria CandidateSearchCriteria) ([]models.Participant, error)
	// GetByID retrieves a single candidate.
	GetByID(ctx context.Context, id string) (*models.Participant, error)
	// Upsert inserts or replaces a candidate by id.
	Upsert(ctx context.Context, p models.Participant) error
}
