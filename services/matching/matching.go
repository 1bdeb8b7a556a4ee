package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	candidateRepo "huddle/database/repository/candidate"
	"huddle/models"
)

// CandidateSupply ranks candidates for a booking.
type CandidateSupply interface {
	Match(ctx context.Context, criteria models.MatchCriteria) ([]models.Participant, models.MatchStats, error)
}

const (
	DefaultLimit  = 40
	matchCacheTTL = 5 * time.Minute
)

// DefaultMatchingService filters and ranks candidates from a CandidateRepository.
// CacheClient is optional.
type DefaultMatchingService struct {
	Repo        candidateRepo.CandidateRepository
	CacheClient *redis.Client
	Logger      *zap.Logger
}

type cachedMatch struct {
	Candidates []models.Participant `json:"candidates"`
	Stats      models.MatchStats    `json:"stats"`
}

func cacheKey(criteria models.MatchCriteria) (string, error) {
	raw, err := json.Marshal(criteria)
	if err != nil {
		return "", fmt.Errorf("failed to marshal match criteria: %w", err)
	}
	return fmt.Sprintf("match:%016x", xxhash.Sum64(raw)), nil
}

func (s *DefaultMatchingService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Match returns ranked candidates and per-slot statistics. An empty pool is
// not an error.
func (s *DefaultMatchingService) Match(ctx context.Context, criteria models.MatchCriteria) ([]models.Participant, models.MatchStats, error) {
	if strings.TrimSpace(criteria.Activity) == "" {
		return nil, models.MatchStats{}, MatchError{Code: CodeInvalidCriteria, Message: "activity is required"}
	}
	if criteria.Limit <= 0 {
		criteria.Limit = DefaultLimit
	}

	key, keyErr := cacheKey(criteria)
	if s.CacheClient != nil && keyErr == nil {
		if cached, err := s.CacheClient.Get(ctx, key).Result(); err == nil && cached != "" {
			var hit cachedMatch
			if err := json.Unmarshal([]byte(cached), &hit); err == nil {
				return hit.Candidates, hit.Stats, nil
			}
		}
	}

	pool, err := s.Repo.Search(ctx, candidateRepo.CandidateSearchCriteria{
		Activity:  criteria.Activity,
		Gender:    genderFilter(criteria.Gender),
		ExcludeID: criteria.ExcludeID,
	})
	if err != nil {
		return nil, models.MatchStats{}, MatchError{Code: CodeSupplyUnavailable, Message: err.Error()}
	}

	ranked := rank(filter(pool, criteria), criteria)
	if len(ranked) > criteria.Limit {
		ranked = ranked[:criteria.Limit]
	}
	stats := buildStats(len(pool), ranked)

	if s.CacheClient != nil && keyErr == nil {
		if raw, err := json.Marshal(cachedMatch{Candidates: ranked, Stats: stats}); err == nil {
			if err := s.CacheClient.Set(ctx, key, raw, matchCacheTTL).Err(); err != nil {
				s.logger().Warn("Failed to cache match result", zap.Error(err))
			}
		}
	}
	s.logger().Info("Matched candidates",
		zap.String("activity", criteria.Activity),
		zap.Int("pool", len(pool)),
		zap.Int("matched", len(ranked)))
	return ranked, stats, nil
}

// genderFilter maps "any"/"mixed" preferences to no filter.
func genderFilter(pref string) string {
	switch strings.ToLower(strings.TrimSpace(pref)) {
	case "", "any", "mixed":
		return ""
	default:
		return pref
	}
}

func filter(pool []models.Participant, criteria models.MatchCriteria) []models.Participant {
	gender := genderFilter(criteria.Gender)
	excluded := make(map[string]bool, len(criteria.ExcludedSlots))
	for _, s := range criteria.ExcludedSlots {
		excluded[s] = true
	}

	var out []models.Participant
	for _, p := range pool {
		if criteria.ExcludeID != "" && p.ID == criteria.ExcludeID {
			continue
		}
		if !p.DoesActivity(criteria.Activity) {
			continue
		}
		if gender != "" && !strings.EqualFold(p.Gender, gender) {
			continue
		}
		if criteria.Level != "" && p.Level != "" && !strings.EqualFold(p.Level, criteria.Level) {
			continue
		}
		if criteria.Pace != "" && p.Pace != "" && !strings.EqualFold(p.Pace, criteria.Pace) {
			continue
		}
		if len(excluded) > 0 {
			p.AvailabilitySlots = withoutSlots(p.AvailabilitySlots, excluded)
			if len(p.AvailabilitySlots) == 0 {
				continue
			}
		}
		if len(criteria.AvailabilitySlots) > 0 && overlap(p.AvailabilitySlots, criteria.AvailabilitySlots) == 0 {
			continue
		}
		out = append(out, p)
	}
	return out
}

func withoutSlots(slots []string, excluded map[string]bool) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if !excluded[s] {
			out = append(out, s)
		}
	}
	return out
}

func overlap(a, b []string) int {
	n := 0
	for _, x := range a {
		for _, y := range b {
			if x == y {
				n++
				break
			}
		}
	}
	return n
}

// rank scores candidates concurrently and orders them best first, ties by id.
func rank(candidates []models.Participant, criteria models.MatchCriteria) []models.Participant {
	const (
		SlotOverlapPts = 10.0
		LevelPts       = 8.0
		PacePts        = 6.0
		ActivityPts    = 4.0
		ProfilePts     = 1.0
	)

	type scored struct {
		p     models.Participant
		score float64
	}

	resultsCh := make(chan scored, len(candidates))
	var wg sync.WaitGroup
	for _, p := range candidates {
		wg.Add(1)
		go func(p models.Participant) {
			defer wg.Done()
			score := SlotOverlapPts * float64(overlap(p.AvailabilitySlots, criteria.AvailabilitySlots))
			if criteria.Level != "" && strings.EqualFold(p.Level, criteria.Level) {
				score += LevelPts
			}
			if criteria.Pace != "" && strings.EqualFold(p.Pace, criteria.Pace) {
				score += PacePts
			}
			if len(p.Activities) > 0 {
				score += ActivityPts
			}
			if p.Bio != "" {
				score += ProfilePts
			}
			resultsCh <- scored{p: p, score: score}
		}(p)
	}
	wg.Wait()
	close(resultsCh)

	var all []scored
	for s := range resultsCh {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].p.ID < all[j].p.ID
	})

	out := make([]models.Participant, len(all))
	for i, s := range all {
		out[i] = s.p
	}
	return out
}

func buildStats(total int, ranked []models.Participant) models.MatchStats {
	stats := models.MatchStats{
		TotalCandidates: total,
		Matched:         len(ranked),
		PerSlot:         map[string]int{},
	}
	for _, p := range ranked {
		for _, s := range p.AvailabilitySlots {
			stats.PerSlot[s]++
		}
	}
	return stats
}
