package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/achievement"
)

type achievementRow struct {
	ID          string      `db:"id"`
	Code        string      `db:"code"`
	Name        string      `db:"name"`
	Description null.String `db:"description"`
	Points      int         `db:"points"`
	CreatedAt   null.Time   `db:"created_at"`
	UpdatedAt   null.Time   `db:"updated_at"`
}

func (r achievementRow) toAchievement() achievement.Achievement {
	return achievement.Achievement{
		ID:          r.ID,
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description.String,
		Points:      r.Points,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
}

func newAchievementRow(ach achievement.Achievement) achievementRow {
	return achievementRow{
		ID:          ach.ID,
		Code:        ach.Code,
		Name:        ach.Name,
		Description: null.NewString(ach.Description, ach.Description != ""),
		Points:      ach.Points,
		CreatedAt:   null.NewTime(ach.CreatedAt.UTC(), !ach.CreatedAt.IsZero()),
		UpdatedAt:   null.NewTime(ach.UpdatedAt.UTC(), !ach.UpdatedAt.IsZero()),
	}
}

type awardRow struct {
	ID            string      `db:"id"`
	AchievementID string      `db:"achievement_id"`
	StudentID     string      `db:"student_id"`
	AwardedBy     null.String `db:"awarded_by"`
	Note          null.String `db:"note"`
	AwardedAt     time.Time   `db:"awarded_at"`
}

func (r awardRow) toAward() achievement.Award {
	return achievement.Award{
		ID:            r.ID,
		AchievementID: r.AchievementID,
		StudentID:     r.StudentID,
		AwardedBy:     r.AwardedBy.String,
		Note:          r.Note.String,
		AwardedAt:     r.AwardedAt,
	}
}

type achievementRepository struct {
	exec core.DBExecutor
}

var _ achievement.Repository = (*achievementRepository)(nil) // interface compliance check

func NewAchievementRepository(exec core.DBExecutor) *achievementRepository {
	return &achievementRepository{exec: exec}
}

func (repo achievementRepository) CreateAchievement(ctx context.Context, ach achievement.Achievement) (achievement.Achievement, error) {
	ach.ID = uuid.New().String()
	row := newAchievementRow(ach)
	_, err := repo.exec.NamedExecContext(ctx, `
		INSERT INTO achievement (id, code, name, description, points, created_at, updated_at)
		VALUES (:id, :code, :name, :description, :points, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return achievement.Achievement{}, errors.Wrap(err, "inserting achievement")
	}
	return row.toAchievement(), nil
}

func (repo achievementRepository) GetAchievement(ctx context.Context, id string) (achievement.Achievement, error) {
	if _, err := uuid.Parse(id); err != nil {
		return achievement.Achievement{}, achievement.ErrNotFound
	}
	var row achievementRow
	if err := repo.exec.GetContext(ctx, &row, `SELECT * FROM achievement WHERE id = $1`, id); err != nil {
		return achievement.Achievement{}, trapNoRowsErr(err, achievement.ErrNotFound, "finding achievement")
	}
	return row.toAchievement(), nil
}

func (repo achievementRepository) GetAchievementByCode(ctx context.Context, code string) (achievement.Achievement, error) {
	var row achievementRow
	if err := repo.exec.GetContext(ctx, &row, `SELECT * FROM achievement WHERE code = $1`, code); err != nil {
		return achievement.Achievement{}, trapNoRowsErr(err, achievement.ErrNotFound, "finding achievement by code")
	}
	return row.toAchievement(), nil
}

func (repo achievementRepository) QueryAchievements(ctx context.Context) ([]achievement.Achievement, error) {
	var rows []achievementRow
	if err := repo.exec.SelectContext(ctx, &rows, `SELECT * FROM achievement ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying achievements")
	}
	achs := make([]achievement.Achievement, 0, len(rows))
	for _, row := range rows {
		achs = append(achs, row.toAchievement())
	}
	return achs, nil
}

func (repo achievementRepository) UpdateAchievement(ctx context.Context, ach achievement.Achievement) (achievement.Achievement, error) {
	row := newAchievementRow(ach)
	res, err := repo.exec.NamedExecContext(ctx, `
		UPDATE achievement SET name = :name, description = :description, points = :points, updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return achievement.Achievement{}, errors.Wrap(err, "updating achievement")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return achievement.Achievement{}, achievement.ErrNotFound
	}
	return row.toAchievement(), nil
}

func (repo achievementRepository) DeleteAchievementsByID(ctx context.Context, ids ...string) error {
	_, err := repo.exec.ExecContext(ctx, `DELETE FROM achievement WHERE id = ANY($1)`, pq.StringArray(ids))
	return errors.Wrap(err, "deleting achievements")
}

func (repo achievementRepository) CreateAward(ctx context.Context, awd achievement.Award) (achievement.Award, error) {
	awd.ID = uuid.New().String()
	row := awardRow{
		ID:            awd.ID,
		AchievementID: awd.AchievementID,
		StudentID:     awd.StudentID,
		AwardedBy:     null.NewString(awd.AwardedBy, awd.AwardedBy != ""),
		Note:          null.NewString(awd.Note, awd.Note != ""),
		AwardedAt:     awd.AwardedAt.UTC(),
	}
	_, err := repo.exec.NamedExecContext(ctx, `
		INSERT INTO award (id, achievement_id, student_id, awarded_by, note, awarded_at)
		VALUES (:id, :achievement_id, :student_id, :awarded_by, :note, :awarded_at)`,
		row,
	)
	if err != nil {
		return achievement.Award{}, errors.Wrap(err, "inserting award")
	}
	return row.toAward(), nil
}

func (repo achievementRepository) GetAward(ctx context.Context, achievementID, studentID string) (achievement.Award, error) {
	var row awardRow
	err := repo.exec.GetContext(ctx, &row,
		`SELECT * FROM award WHERE achievement_id = $1 AND student_id = $2`, achievementID, studentID)
	if err != nil {
		return achievement.Award{}, trapNoRowsErr(err, achievement.ErrAwardNotFound, "finding award")
	}
	return row.toAward(), nil
}

func (repo achievementRepository) DeleteAward(ctx context.Context, achievementID, studentID string) error {
	_, err := repo.exec.ExecContext(ctx,
		`DELETE FROM award WHERE achievement_id = $1 AND student_id = $2`, achievementID, studentID)
	return errors.Wrap(err, "deleting award")
}

func (repo achievementRepository) QueryAwardsByStudent(ctx context.Context, studentID string) ([]achievement.Award, error) {
	return repo.queryAwards(ctx, `SELECT * FROM award WHERE student_id = $1 ORDER BY awarded_at DESC`, studentID)
}

func (repo achievementRepository) QueryAwards(ctx context.Context) ([]achievement.Award, error) {
	return repo.queryAwards(ctx, `SELECT * FROM award`)
}

func (repo achievementRepository) queryAwards(ctx context.Context, query string, args ...interface{}) ([]achievement.Award, error) {
	var rows []awardRow
	if err := repo.exec.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying awards")
	}
	awards := make([]achievement.Award, 0, len(rows))
	for _, row := range rows {
		awards = append(awards, row.toAward())
	}
	return awards, nil
}
