package convergence

import (
	"time"

	"huddle/models"
)

// Preset is one named set of tuning constants for a convergence loop. The
// standard and backfill flows differ only in these numbers.
type Preset struct {
	Name          string
	BatchSize     int
	SimulatedWait time.Duration
	AcceptProb    float64
	DeclineProb   float64
}

// StandardPreset drives a fresh group booking.
func StandardPreset() Preset {
	return Preset{
		Name:          string(models.VariantStandard),
		BatchSize:     10,
		SimulatedWait: 3600 * time.Second,
		AcceptProb:    0.25,
		DeclineProb:   0.35,
	}
}

// BackfillPreset drives the smaller, faster search for someone who left a group.
func BackfillPreset() Preset {
	return Preset{
		Name:          string(models.VariantBackfill),
		BatchSize:     5,
		SimulatedWait: 1800 * time.Second,
		AcceptProb:    0.30,
		DeclineProb:   0.35,
	}
}

// ReschedulePreset drives polling of the remaining group for a schedule change.
// BatchSize is unused there.
func ReschedulePreset() Preset {
	return Preset{
		Name:          "reschedule",
		SimulatedWait: 1800 * time.Second,
		AcceptProb:    0.70,
		DeclineProb:   0.30,
	}
}
