package sqlxrepos

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/mastery"
)

type topicMasteryRow struct {
	StudentID      string    `db:"student_id"`
	TopicID        string    `db:"topic_id"`
	Levels         []byte    `db:"levels"` // JSONB
	LastAssessedAt null.Time `db:"last_assessed_at"`
	UpdatedAt      null.Time `db:"updated_at"`
}

func (r topicMasteryRow) toMastery() (mastery.TopicMastery, error) {
	m := mastery.TopicMastery{
		StudentID:      r.StudentID,
		TopicID:        r.TopicID,
		Levels:         make(map[mastery.Level]mastery.LevelScore),
		LastAssessedAt: r.LastAssessedAt.Time,
		UpdatedAt:      r.UpdatedAt.Time,
	}
	if err := json.Unmarshal(r.Levels, &m.Levels); err != nil {
		return mastery.TopicMastery{}, errors.Wrap(err, "decoding mastery levels")
	}
	return m, nil
}

func newTopicMasteryRow(m mastery.TopicMastery) (topicMasteryRow, error) {
	levels, err := json.Marshal(m.Levels)
	if err != nil {
		return topicMasteryRow{}, errors.Wrap(err, "encoding mastery levels")
	}
	return topicMasteryRow{
		StudentID:      m.StudentID,
		TopicID:        m.TopicID,
		Levels:         levels,
		LastAssessedAt: null.NewTime(m.LastAssessedAt.UTC(), !m.LastAssessedAt.IsZero()),
		UpdatedAt:      null.NewTime(m.UpdatedAt.UTC(), !m.UpdatedAt.IsZero()),
	}, nil
}

type masteryRepository struct {
	exec core.DBExecutor
}

var _ mastery.Repository = (*masteryRepository)(nil) // interface compliance check

func NewMasteryRepository(exec core.DBExecutor) *masteryRepository {
	return &masteryRepository{exec: exec}
}

func (repo masteryRepository) GetTopicMastery(ctx context.Context, studentID, topicID string) (mastery.TopicMastery, error) {
	var row topicMasteryRow
	err := repo.exec.GetContext(ctx, &row,
		`SELECT * FROM topic_mastery WHERE student_id = $1 AND topic_id = $2`, studentID, topicID)
	if err != nil {
		return mastery.TopicMastery{}, trapNoRowsErr(err, mastery.ErrNotFound, "finding mastery record")
	}
	return row.toMastery()
}

func (repo masteryRepository) SaveTopicMastery(ctx context.Context, m mastery.TopicMastery) (mastery.TopicMastery, error) {
	row, err := newTopicMasteryRow(m)
	if err != nil {
		return mastery.TopicMastery{}, err
	}
	_, err = repo.exec.NamedExecContext(ctx, `
		INSERT INTO topic_mastery (student_id, topic_id, levels, last_assessed_at, updated_at)
		VALUES (:student_id, :topic_id, :levels, :last_assessed_at, :updated_at)
		ON CONFLICT (student_id, topic_id)
		DO UPDATE SET levels = EXCLUDED.levels, last_assessed_at = EXCLUDED.last_assessed_at,
			updated_at = EXCLUDED.updated_at`,
		row,
	)
	if err != nil {
		return mastery.TopicMastery{}, errors.Wrap(err, "saving mastery record")
	}
	return m, nil
}

func (repo masteryRepository) QueryByStudent(ctx context.Context, studentID string) ([]mastery.TopicMastery, error) {
	return repo.query(ctx, `SELECT * FROM topic_mastery WHERE student_id = $1`, studentID)
}

func (repo masteryRepository) QueryByTopic(ctx context.Context, topicID string) ([]mastery.TopicMastery, error) {
	return repo.query(ctx, `SELECT * FROM topic_mastery WHERE topic_id = $1`, topicID)
}

func (repo masteryRepository) query(ctx context.Context, query string, arg interface{}) ([]mastery.TopicMastery, error) {
	var rows []topicMasteryRow
	if err := repo.exec.SelectContext(ctx, &rows, query, arg); err != nil {
		return nil, errors.Wrap(err, "querying mastery records")
	}
	records := make([]mastery.TopicMastery, 0, len(rows))
	for _, row := range rows {
		m, err := row.toMastery()
		if err != nil {
			return nil, err
		}
		records = append(records, m)
	}
	return records, nil
}
