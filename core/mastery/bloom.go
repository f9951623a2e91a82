package mastery

import (
	"github.com/pkg/errors"
)

// Level is one of the six cognitive levels of Bloom's Taxonomy.
type Level string

const (
	LevelRemember   Level = "remember"
	LevelUnderstand Level = "understand"
	LevelApply      Level = "apply"
	LevelAnalyze    Level = "analyze"
	LevelEvaluate   Level = "evaluate"
	LevelCreate     Level = "create"
)

// Levels lists all levels in taxonomy order.
var Levels = []Level{LevelRemember, LevelUnderstand, LevelApply, LevelAnalyze, LevelEvaluate, LevelCreate}

var ErrUnknownLevel = errors.New("unknown taxonomy level")

func ParseLevel(s string) (Level, error) {
	for _, lvl := range Levels {
		if string(lvl) == s {
			return lvl, nil
		}
	}
	return "", ErrUnknownLevel
}

// Classification buckets an overall mastery score.
type Classification string

const (
	ClassificationMastered   Classification = "mastered"
	ClassificationProficient Classification = "proficient"
	ClassificationDeveloping Classification = "developing"
	ClassificationBeginning  Classification = "beginning"
)
