package mastery

import (
	"time"

	"github.com/trezcool/shule/core"
)

type (
	// LevelScore tracks one cognitive level of one student/topic pair.
	LevelScore struct {
		Score    float64 `json:"score"` // [0, 100]
		Attempts int     `json:"attempts"`
	}

	// TopicMastery is the full mastery record of a student on a topic.
	TopicMastery struct {
		StudentID      string               `json:"student_id"`
		TopicID        string               `json:"topic_id"`
		Levels         map[Level]LevelScore `json:"levels"`
		LastAssessedAt time.Time            `json:"last_assessed_at"` // UTC
		UpdatedAt      time.Time            `json:"updated_at"`       // UTC
	}

	// AssessmentResult is a single graded assessment, scored per level.
	// Levels absent from LevelScores are left untouched.
	AssessmentResult struct {
		StudentID   string             `json:"student_id" validate:"required"`
		TopicID     string             `json:"topic_id" validate:"required"`
		LevelScores map[Level]float64  `json:"level_scores" validate:"required"`
		// Weight scales how strongly this result moves existing scores;
		// defaults to 1 (full weight).
		Weight  float64   `json:"weight" validate:"omitempty,gt=0,lte=1"`
		TakenAt time.Time `json:"taken_at"`
	}
)

// NewTopicMastery returns an empty record with all levels at zero attempts.
func NewTopicMastery(studentID, topicID string) TopicMastery {
	m := TopicMastery{
		StudentID: studentID,
		TopicID:   topicID,
		Levels:    make(map[Level]LevelScore, len(Levels)),
	}
	for _, lvl := range Levels {
		m.Levels[lvl] = LevelScore{}
	}
	return m
}

// Assessed reports whether any level has been assessed at least once.
func (m TopicMastery) Assessed() bool {
	for _, ls := range m.Levels {
		if ls.Attempts > 0 {
			return true
		}
	}
	return false
}

func (r *AssessmentResult) Validate() error {
	r.StudentID = core.CleanString(r.StudentID)
	r.TopicID = core.CleanString(r.TopicID)
	if r.Weight == 0 {
		r.Weight = 1
	}
	if r.TakenAt.IsZero() {
		r.TakenAt = time.Now().UTC()
	}

	if err := core.Validate.Struct(r); err != nil {
		return err
	}
	if len(r.LevelScores) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "level_scores", Error: "at least one level score is required"})
	}
	for lvl, score := range r.LevelScores {
		if _, err := ParseLevel(string(lvl)); err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "level_scores", Error: "unknown level: " + string(lvl)})
		}
		if score < 0 || score > 100 {
			return core.NewValidationError(nil, core.FieldError{Field: "level_scores", Error: "scores must be within [0, 100]"})
		}
	}
	return nil
}
