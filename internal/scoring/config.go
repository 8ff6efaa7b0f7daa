package scoring

import (
	"fmt"

	"github.com/KOFI-GYIMAH/github-popularity/pkg/errors"
)

type Freshness struct {
	VeryRecentDays    int
	RecentDays        int
	OldDays           int
	BoostVeryRecent   float64
	BoostRecent       float64
	PenaltyOld        float64
	DefaultMultiplier float64
}

type Config struct {
	StarsWeight float64
	ForksWeight float64
	Freshness   Freshness
}

func DefaultConfig() Config {
	return Config{
		StarsWeight: 1.0,
		ForksWeight: 1.5,
		Freshness: Freshness{
			VeryRecentDays:    3,
			RecentDays:        14,
			OldDays:           365,
			BoostVeryRecent:   1.5,
			BoostRecent:       1.2,
			PenaltyOld:        0.5,
			DefaultMultiplier: 1.0,
		},
	}
}

// * Validate is meant to run once at startup. Scores are only guaranteed to be
// * non-negative for configurations that pass it.
func (c Config) Validate() error {
	f := c.Freshness

	switch {
	case c.StarsWeight <= 0:
		return invalid("starsWeight must be greater than 0, got %v", c.StarsWeight)
	case c.ForksWeight <= 0:
		return invalid("forksWeight must be greater than 0, got %v", c.ForksWeight)
	case f.VeryRecentDays < 0:
		return invalid("veryRecentDays must not be negative, got %d", f.VeryRecentDays)
	case f.VeryRecentDays >= f.RecentDays || f.RecentDays >= f.OldDays:
		return invalid("freshness thresholds must be strictly increasing (veryRecentDays < recentDays < oldDays), got %d, %d, %d",
			f.VeryRecentDays, f.RecentDays, f.OldDays)
	case f.BoostVeryRecent <= f.BoostRecent:
		return invalid("boostVeryRecent (%v) must be greater than boostRecent (%v)", f.BoostVeryRecent, f.BoostRecent)
	case f.BoostRecent < f.DefaultMultiplier:
		return invalid("boostRecent (%v) must not be lower than defaultMultiplier (%v)", f.BoostRecent, f.DefaultMultiplier)
	case f.PenaltyOld >= f.DefaultMultiplier:
		return invalid("penaltyOld (%v) must be lower than defaultMultiplier (%v)", f.PenaltyOld, f.DefaultMultiplier)
	case f.PenaltyOld < 0:
		return invalid("penaltyOld must not be negative, got %v", f.PenaltyOld)
	}

	return nil
}

func invalid(format string, args ...any) error {
	return errors.New(
		errors.RefInvalidConfig,
		"Invalid scoring configuration",
		fmt.Sprintf(format, args...),
		nil,
		errors.LevelFatal,
	)
}
