package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

type campusRow struct {
	ID        string      `db:"id"`
	Name      string      `db:"name"`
	Address   null.String `db:"address"`
	Phone     null.String `db:"phone"`
	CreatedAt null.Time   `db:"created_at"`
	UpdatedAt null.Time   `db:"updated_at"`
}

func (r campusRow) toCampus() school.Campus {
	return school.Campus{
		ID:        r.ID,
		Name:      r.Name,
		Address:   r.Address.String,
		Phone:     r.Phone.String,
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}
}

func newCampusRow(c school.Campus) campusRow {
	return campusRow{
		ID:        c.ID,
		Name:      c.Name,
		Address:   null.NewString(c.Address, c.Address != ""),
		Phone:     null.NewString(c.Phone, c.Phone != ""),
		CreatedAt: null.NewTime(c.CreatedAt.UTC(), !c.CreatedAt.IsZero()),
		UpdatedAt: null.NewTime(c.UpdatedAt.UTC(), !c.UpdatedAt.IsZero()),
	}
}

type classRow struct {
	ID            string      `db:"id"`
	CampusID      string      `db:"campus_id"`
	Name          string      `db:"name"`
	GradeLevel    int         `db:"grade_level"`
	HomeTeacherID null.String `db:"home_teacher_id"`
	AcademicYear  string      `db:"academic_year"`
	CreatedAt     null.Time   `db:"created_at"`
	UpdatedAt     null.Time   `db:"updated_at"`
}

func (r classRow) toClass() school.Class {
	return school.Class{
		ID:            r.ID,
		CampusID:      r.CampusID,
		Name:          r.Name,
		GradeLevel:    r.GradeLevel,
		HomeTeacherID: r.HomeTeacherID.String,
		AcademicYear:  r.AcademicYear,
		CreatedAt:     r.CreatedAt.Time,
		UpdatedAt:     r.UpdatedAt.Time,
	}
}

func newClassRow(c school.Class) classRow {
	return classRow{
		ID:            c.ID,
		CampusID:      c.CampusID,
		Name:          c.Name,
		GradeLevel:    c.GradeLevel,
		HomeTeacherID: null.NewString(c.HomeTeacherID, c.HomeTeacherID != ""),
		AcademicYear:  c.AcademicYear,
		CreatedAt:     null.NewTime(c.CreatedAt.UTC(), !c.CreatedAt.IsZero()),
		UpdatedAt:     null.NewTime(c.UpdatedAt.UTC(), !c.UpdatedAt.IsZero()),
	}
}

type topicRow struct {
	ID        string    `db:"id"`
	ClassID   string    `db:"class_id"`
	Subject   string    `db:"subject"`
	Name      string    `db:"name"`
	CreatedAt null.Time `db:"created_at"`
}

func (r topicRow) toTopic() school.Topic {
	return school.Topic{
		ID:        r.ID,
		ClassID:   r.ClassID,
		Subject:   r.Subject,
		Name:      r.Name,
		CreatedAt: r.CreatedAt.Time,
	}
}

type enrollmentRow struct {
	ID          string    `db:"id"`
	ClassID     string    `db:"class_id"`
	StudentID   string    `db:"student_id"`
	EnrolledAt  time.Time `db:"enrolled_at"`
	WithdrawnAt null.Time `db:"withdrawn_at"`
}

func (r enrollmentRow) toEnrollment() school.Enrollment {
	enr := school.Enrollment{
		ID:         r.ID,
		ClassID:    r.ClassID,
		StudentID:  r.StudentID,
		EnrolledAt: r.EnrolledAt,
	}
	if r.WithdrawnAt.Valid {
		t := r.WithdrawnAt.Time
		enr.WithdrawnAt = &t
	}
	return enr
}

type schoolRepository struct {
	exec core.DBExecutor
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(exec core.DBExecutor) *schoolRepository {
	return &schoolRepository{exec: exec}
}

func (repo schoolRepository) CreateCampus(ctx context.Context, campus school.Campus) (school.Campus, error) {
	campus.ID = uuid.New().String()
	row := newCampusRow(campus)
	_, err := repo.exec.NamedExecContext(ctx, `
		INSERT INTO campus (id, name, address, phone, created_at, updated_at)
		VALUES (:id, :name, :address, :phone, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return school.Campus{}, errors.Wrap(err, "inserting campus")
	}
	return row.toCampus(), nil
}

func (repo schoolRepository) GetCampus(ctx context.Context, id string) (school.Campus, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Campus{}, school.ErrCampusNotFound
	}
	var row campusRow
	if err := repo.exec.GetContext(ctx, &row, `SELECT * FROM campus WHERE id = $1`, id); err != nil {
		return school.Campus{}, trapNoRowsErr(err, school.ErrCampusNotFound, "finding campus")
	}
	return row.toCampus(), nil
}

func (repo schoolRepository) QueryCampuses(ctx context.Context, ordering ...core.DBOrdering) ([]school.Campus, error) {
	query := `SELECT * FROM campus` + orderBy(ordering)
	var rows []campusRow
	if err := repo.exec.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying campuses")
	}
	campuses := make([]school.Campus, 0, len(rows))
	for _, row := range rows {
		campuses = append(campuses, row.toCampus())
	}
	return campuses, nil
}

func (repo schoolRepository) UpdateCampus(ctx context.Context, campus school.Campus) (school.Campus, error) {
	row := newCampusRow(campus)
	res, err := repo.exec.NamedExecContext(ctx, `
		UPDATE campus SET name = :name, address = :address, phone = :phone, updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return school.Campus{}, errors.Wrap(err, "updating campus")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.Campus{}, school.ErrCampusNotFound
	}
	return row.toCampus(), nil
}

func (repo schoolRepository) DeleteCampusesByID(ctx context.Context, ids ...string) error {
	_, err := repo.exec.ExecContext(ctx, `DELETE FROM campus WHERE id = ANY($1)`, pq.StringArray(ids))
	return errors.Wrap(err, "deleting campuses")
}

func (repo schoolRepository) CreateClass(ctx context.Context, class school.Class) (school.Class, error) {
	class.ID = uuid.New().String()
	row := newClassRow(class)
	_, err := repo.exec.NamedExecContext(ctx, `
		INSERT INTO class (id, campus_id, name, grade_level, home_teacher_id, academic_year, created_at, updated_at)
		VALUES (:id, :campus_id, :name, :grade_level, :home_teacher_id, :academic_year, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return school.Class{}, errors.Wrap(err, "inserting class")
	}
	return row.toClass(), nil
}

func (repo schoolRepository) GetClass(ctx context.Context, id string) (school.Class, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Class{}, school.ErrClassNotFound
	}
	var row classRow
	if err := repo.exec.GetContext(ctx, &row, `SELECT * FROM class WHERE id = $1`, id); err != nil {
		return school.Class{}, trapNoRowsErr(err, school.ErrClassNotFound, "finding class")
	}
	return row.toClass(), nil
}

func (repo schoolRepository) QueryClasses(ctx context.Context, filter *school.ClassQueryFilter, ordering ...core.DBOrdering) ([]school.Class, error) {
	query := `SELECT * FROM class`
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.CampusID != "" {
			conds = append(conds, "campus_id = "+arg(filter.CampusID))
		}
		if filter.AcademicYear != "" {
			conds = append(conds, "academic_year = "+arg(filter.AcademicYear))
		}
		if filter.GradeLevel != nil {
			conds = append(conds, "grade_level = "+arg(*filter.GradeLevel))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering)

	var rows []classRow
	if err := repo.exec.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]school.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.toClass())
	}
	return classes, nil
}

func (repo schoolRepository) UpdateClass(ctx context.Context, class school.Class) (school.Class, error) {
	row := newClassRow(class)
	res, err := repo.exec.NamedExecContext(ctx, `
		UPDATE class
		SET name = :name, grade_level = :grade_level, home_teacher_id = :home_teacher_id,
			academic_year = :academic_year, updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return school.Class{}, errors.Wrap(err, "updating class")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.Class{}, school.ErrClassNotFound
	}
	return row.toClass(), nil
}

func (repo schoolRepository) DeleteClassesByID(ctx context.Context, ids ...string) error {
	_, err := repo.exec.ExecContext(ctx, `DELETE FROM class WHERE id = ANY($1)`, pq.StringArray(ids))
	return errors.Wrap(err, "deleting classes")
}

func (repo schoolRepository) CreateTopic(ctx context.Context, topic school.Topic) (school.Topic, error) {
	topic.ID = uuid.New().String()
	row := topicRow{
		ID:        topic.ID,
		ClassID:   topic.ClassID,
		Subject:   topic.Subject,
		Name:      topic.Name,
		CreatedAt: null.NewTime(topic.CreatedAt.UTC(), !topic.CreatedAt.IsZero()),
	}
	_, err := repo.exec.NamedExecContext(ctx, `
		INSERT INTO topic (id, class_id, subject, name, created_at)
		VALUES (:id, :class_id, :subject, :name, :created_at)`,
		row,
	)
	if err != nil {
		return school.Topic{}, errors.Wrap(err, "inserting topic")
	}
	return row.toTopic(), nil
}

func (repo schoolRepository) GetTopic(ctx context.Context, id string) (school.Topic, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Topic{}, school.ErrTopicNotFound
	}
	var row topicRow
	if err := repo.exec.GetContext(ctx, &row, `SELECT * FROM topic WHERE id = $1`, id); err != nil {
		return school.Topic{}, trapNoRowsErr(err, school.ErrTopicNotFound, "finding topic")
	}
	return row.toTopic(), nil
}

func (repo schoolRepository) QueryTopicsByClass(ctx context.Context, classID string) ([]school.Topic, error) {
	var rows []topicRow
	if err := repo.exec.SelectContext(ctx, &rows,
		`SELECT * FROM topic WHERE class_id = $1 ORDER BY subject, name`, classID); err != nil {
		return nil, errors.Wrap(err, "querying topics")
	}
	topics := make([]school.Topic, 0, len(rows))
	for _, row := range rows {
		topics = append(topics, row.toTopic())
	}
	return topics, nil
}

func (repo schoolRepository) DeleteTopicsByID(ctx context.Context, ids ...string) error {
	_, err := repo.exec.ExecContext(ctx, `DELETE FROM topic WHERE id = ANY($1)`, pq.StringArray(ids))
	return errors.Wrap(err, "deleting topics")
}

func (repo schoolRepository) GetEnrollment(ctx context.Context, classID, studentID string) (school.Enrollment, error) {
	var row enrollmentRow
	err := repo.exec.GetContext(ctx, &row,
		`SELECT * FROM enrollment WHERE class_id = $1 AND student_id = $2`, classID, studentID)
	if err != nil {
		return school.Enrollment{}, trapNoRowsErr(err, school.ErrEnrollmentNotFound, "finding enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo schoolRepository) SaveEnrollment(ctx context.Context, enr school.Enrollment) (school.Enrollment, error) {
	if enr.ID == "" {
		enr.ID = uuid.New().String()
	}
	row := enrollmentRow{
		ID:         enr.ID,
		ClassID:    enr.ClassID,
		StudentID:  enr.StudentID,
		EnrolledAt: enr.EnrolledAt.UTC(),
	}
	if enr.WithdrawnAt != nil {
		row.WithdrawnAt = null.TimeFrom(enr.WithdrawnAt.UTC())
	}
	_, err := repo.exec.NamedExecContext(ctx, `
		INSERT INTO enrollment (id, class_id, student_id, enrolled_at, withdrawn_at)
		VALUES (:id, :class_id, :student_id, :enrolled_at, :withdrawn_at)
		ON CONFLICT (class_id, student_id)
		DO UPDATE SET enrolled_at = EXCLUDED.enrolled_at, withdrawn_at = EXCLUDED.withdrawn_at`,
		row,
	)
	if err != nil {
		return school.Enrollment{}, errors.Wrap(err, "saving enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo schoolRepository) QueryEnrollmentsByClass(ctx context.Context, classID string) ([]school.Enrollment, error) {
	return repo.queryEnrollments(ctx, `SELECT * FROM enrollment WHERE class_id = $1 ORDER BY enrolled_at`, classID)
}

func (repo schoolRepository) QueryEnrollmentsByStudent(ctx context.Context, studentID string) ([]school.Enrollment, error) {
	return repo.queryEnrollments(ctx, `SELECT * FROM enrollment WHERE student_id = $1 ORDER BY enrolled_at`, studentID)
}

func (repo schoolRepository) queryEnrollments(ctx context.Context, query string, arg interface{}) ([]school.Enrollment, error) {
	var rows []enrollmentRow
	if err := repo.exec.SelectContext(ctx, &rows, query, arg); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrs := make([]school.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, row.toEnrollment())
	}
	return enrs, nil
}

func orderBy(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		return ""
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}
