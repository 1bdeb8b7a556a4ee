package convergence

import (
	"math/rand"
	"sync"

	"huddle/models"
)

// ResponseSimulator decides how a mock participant answers an invitation.
type ResponseSimulator interface {
	Draw(p models.Participant, preset Preset) models.InvitationStatus
}

// RandomSimulator draws uniformly: accept below AcceptProb, decline below
// AcceptProb+DeclineProb, otherwise let the invitation expire.
type RandomSimulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomSimulator(seed int64) *RandomSimulator {
	return &RandomSimulator{rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomSimulator) Draw(_ models.Participant, preset Preset) models.InvitationStatus {
	s.mu.Lock()
	r := s.rng.Float64()
	s.mu.Unlock()
	switch {
	case r < preset.AcceptProb:
		return models.InvitationAccepted
	case r < preset.AcceptProb+preset.DeclineProb:
		return models.InvitationDeclined
	default:
		return models.InvitationExpired
	}
}

// SimulatorFunc adapts a function to ResponseSimulator.
type SimulatorFunc func(p models.Participant, preset Preset) models.InvitationStatus

func (f SimulatorFunc) Draw(p models.Participant, preset Preset) models.InvitationStatus {
	return f(p, preset)
}
