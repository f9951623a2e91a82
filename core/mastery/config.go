package mastery

import (
	"math"

	"github.com/pkg/errors"
)

type (
	// DecayConfig drives the linear time decay applied to level scores.
	DecayConfig struct {
		// GraceDays is the number of days after the last assessment during
		// which no decay applies.
		GraceDays int
		// RatePerDay is the number of percentage points lost per day past
		// the grace period.
		RatePerDay float64
		// Floor is the score decay can never go below.
		Floor float64
	}

	// Thresholds maps overall scores to classifications; must be descending.
	Thresholds struct {
		Mastered   float64
		Proficient float64
		Developing float64
	}

	Config struct {
		// Weights per level; must cover all six levels and sum to 1.
		Weights map[Level]float64
		// LearningRate controls how fast a new result pulls a level score
		// toward the observed value.
		LearningRate float64
		Decay        DecayConfig
		Thresholds   Thresholds
	}
)

// DefaultConfig returns the weighting scheme used across the app.
// Higher-order levels weigh more; the exact split is a pedagogical choice.
func DefaultConfig() Config {
	return Config{
		Weights: map[Level]float64{
			LevelRemember:   .10,
			LevelUnderstand: .15,
			LevelApply:      .20,
			LevelAnalyze:    .20,
			LevelEvaluate:   .15,
			LevelCreate:     .20,
		},
		LearningRate: .5,
		Decay: DecayConfig{
			GraceDays:  14,
			RatePerDay: .5,
			Floor:      25,
		},
		Thresholds: Thresholds{
			Mastered:   85,
			Proficient: 70,
			Developing: 50,
		},
	}
}

func (cfg Config) Validate() error {
	if len(cfg.Weights) != len(Levels) {
		return errors.Errorf("weights must cover all %d levels", len(Levels))
	}
	var sum float64
	for _, lvl := range Levels {
		w, ok := cfg.Weights[lvl]
		if !ok {
			return errors.Errorf("missing weight for level %q", lvl)
		}
		if w < 0 {
			return errors.Errorf("negative weight for level %q", lvl)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		return errors.Errorf("weights must sum to 1, got %v", sum)
	}
	if cfg.LearningRate <= 0 || cfg.LearningRate > 1 {
		return errors.New("learning rate must be in (0, 1]")
	}
	if cfg.Decay.GraceDays < 0 || cfg.Decay.RatePerDay < 0 {
		return errors.New("decay grace and rate cannot be negative")
	}
	if cfg.Decay.Floor < 0 || cfg.Decay.Floor > 100 {
		return errors.New("decay floor must be in [0, 100]")
	}
	t := cfg.Thresholds
	if !(t.Mastered > t.Proficient && t.Proficient > t.Developing && t.Developing > 0) {
		return errors.New("thresholds must be descending and positive")
	}
	return nil
}
