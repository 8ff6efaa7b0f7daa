package scoring

import (
	"math"
	"time"

	"github.com/KOFI-GYIMAH/github-popularity/internal/models"
)

const day = 24 * time.Hour

// Scorer turns repository metrics into a popularity score:
//
//	(log10(stars+1)*starsWeight + log10(forks+1)*forksWeight) * freshness
//
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	cfg Config
	now func() time.Time
}

func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg, now: time.Now}
}

// * NewScorerWithClock pins "now", used by tests and by anything that needs
// * reproducible scores
func NewScorerWithClock(cfg Config, now func() time.Time) *Scorer {
	return &Scorer{cfg: cfg, now: now}
}

func (s *Scorer) Score(m *models.RepositoryMetrics) float64 {
	if m == nil {
		return 0.0
	}

	base := math.Log10(float64(max(m.Stars, 0))+1) * s.cfg.StarsWeight
	base += math.Log10(float64(max(m.Forks, 0))+1) * s.cfg.ForksWeight

	return base * s.FreshnessMultiplier(m.UpdatedAt)
}

// FreshnessMultiplier picks the multiplier for a last-updated timestamp.
// Branches are checked in order and the first match wins; the two "recent"
// thresholds are inclusive, the old threshold is exclusive.
func (s *Scorer) FreshnessMultiplier(updatedAt *time.Time) float64 {
	f := s.cfg.Freshness

	if updatedAt == nil {
		return f.DefaultMultiplier
	}

	daysOld := int(s.now().Sub(updatedAt.UTC()) / day)

	switch {
	case daysOld <= f.VeryRecentDays:
		return f.BoostVeryRecent
	case daysOld <= f.RecentDays:
		return f.BoostRecent
	case daysOld > f.OldDays:
		return f.PenaltyOld
	default:
		return f.DefaultMultiplier
	}
}
