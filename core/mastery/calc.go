package mastery

import (
	"time"
)

// Apply folds an assessment result into a mastery record and returns the
// updated copy. Each scored level moves toward the observed score by
// learningRate*weight of the gap; a first attempt takes the raw score.
// All scores are clamped to [0, 100].
func Apply(m TopicMastery, res AssessmentResult, cfg Config) TopicMastery {
	out := cloneMastery(m)

	for lvl, score := range res.LevelScores {
		score = clamp(score, 0, 100)
		ls := out.Levels[lvl]
		if ls.Attempts == 0 {
			ls.Score = score
		} else {
			ls.Score = clamp(ls.Score+cfg.LearningRate*res.Weight*(score-ls.Score), 0, 100)
		}
		ls.Attempts++
		out.Levels[lvl] = ls
	}

	// LastAssessedAt only ever moves forward; late-arriving results must not
	// rewind the decay clock.
	takenAt := res.TakenAt.UTC()
	if takenAt.After(out.LastAssessedAt) {
		out.LastAssessedAt = takenAt
	}
	out.UpdatedAt = time.Now().UTC()
	return out
}

// Decayed returns a copy of the record with linear time decay applied as of
// the given instant. Decay starts after the grace period, never raises a
// score, never drops below the floor and skips levels never assessed.
func Decayed(m TopicMastery, asOf time.Time, cfg Config) TopicMastery {
	out := cloneMastery(m)
	if m.LastAssessedAt.IsZero() {
		return out
	}

	days := asOf.UTC().Sub(m.LastAssessedAt.UTC()).Hours() / 24
	decayDays := days - float64(cfg.Decay.GraceDays)
	if decayDays <= 0 {
		return out
	}

	loss := cfg.Decay.RatePerDay * decayDays
	for lvl, ls := range out.Levels {
		if ls.Attempts == 0 {
			continue
		}
		decayed := ls.Score - loss
		if decayed < cfg.Decay.Floor {
			decayed = cfg.Decay.Floor
		}
		// the floor only pulls scores down, never up
		if decayed < ls.Score {
			ls.Score = decayed
			out.Levels[lvl] = ls
		}
	}
	return out
}

// Overall computes the weighted overall mastery percentage of a record.
// Unassessed records score 0.
func Overall(m TopicMastery, cfg Config) float64 {
	if !m.Assessed() {
		return 0
	}
	var sum float64
	for _, lvl := range Levels {
		sum += cfg.Weights[lvl] * m.Levels[lvl].Score
	}
	return clamp(sum, 0, 100)
}

// Classify buckets an overall score per the configured thresholds.
func Classify(overall float64, cfg Config) Classification {
	switch {
	case overall >= cfg.Thresholds.Mastered:
		return ClassificationMastered
	case overall >= cfg.Thresholds.Proficient:
		return ClassificationProficient
	case overall >= cfg.Thresholds.Developing:
		return ClassificationDeveloping
	default:
		return ClassificationBeginning
	}
}

func cloneMastery(m TopicMastery) TopicMastery {
	out := m
	out.Levels = make(map[Level]LevelScore, len(Levels))
	for _, lvl := range Levels {
		out.Levels[lvl] = m.Levels[lvl]
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
