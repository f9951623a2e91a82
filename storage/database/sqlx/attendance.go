package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
)

type attendanceRow struct {
	ID         string      `db:"id"`
	ClassID    string      `db:"class_id"`
	StudentID  string      `db:"student_id"`
	Date       time.Time   `db:"date"`
	Status     string      `db:"status"`
	Note       null.String `db:"note"`
	RecordedBy null.String `db:"recorded_by"`
	CreatedAt  null.Time   `db:"created_at"`
	UpdatedAt  null.Time   `db:"updated_at"`
}

func (r attendanceRow) toRecord() attendance.Record {
	return attendance.Record{
		ID:         r.ID,
		ClassID:    r.ClassID,
		StudentID:  r.StudentID,
		Date:       attendance.TruncateDate(r.Date),
		Status:     attendance.Status(r.Status),
		Note:       r.Note.String,
		RecordedBy: r.RecordedBy.String,
		CreatedAt:  r.CreatedAt.Time,
		UpdatedAt:  r.UpdatedAt.Time,
	}
}

func newAttendanceRow(rec attendance.Record) attendanceRow {
	return attendanceRow{
		ID:         rec.ID,
		ClassID:    rec.ClassID,
		StudentID:  rec.StudentID,
		Date:       rec.Date,
		Status:     string(rec.Status),
		Note:       null.NewString(rec.Note, rec.Note != ""),
		RecordedBy: null.NewString(rec.RecordedBy, rec.RecordedBy != ""),
		CreatedAt:  null.NewTime(rec.CreatedAt.UTC(), !rec.CreatedAt.IsZero()),
		UpdatedAt:  null.NewTime(rec.UpdatedAt.UTC(), !rec.UpdatedAt.IsZero()),
	}
}

type attendanceRepository struct {
	exec core.DBExecutor
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(exec core.DBExecutor) *attendanceRepository {
	return &attendanceRepository{exec: exec}
}

func (repo attendanceRepository) UpsertRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	row := newAttendanceRow(rec)
	var id string
	// RETURNING exposes the surviving ID on conflict
	err := repo.exec.GetContext(ctx, &id, `
		INSERT INTO attendance_record (id, class_id, student_id, date, status, note, recorded_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (class_id, student_id, date)
		DO UPDATE SET status = EXCLUDED.status, note = EXCLUDED.note,
			recorded_by = EXCLUDED.recorded_by, updated_at = EXCLUDED.updated_at
		RETURNING id`,
		row.ID, row.ClassID, row.StudentID, row.Date, row.Status, row.Note, row.RecordedBy, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "upserting attendance record")
	}
	rec.ID = id
	return rec, nil
}

func (repo attendanceRepository) GetRecord(ctx context.Context, id string) (attendance.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return attendance.Record{}, attendance.ErrNotFound
	}
	var row attendanceRow
	if err := repo.exec.GetContext(ctx, &row, `SELECT * FROM attendance_record WHERE id = $1`, id); err != nil {
		return attendance.Record{}, trapNoRowsErr(err, attendance.ErrNotFound, "finding attendance record")
	}
	return row.toRecord(), nil
}

func (repo attendanceRepository) UpdateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	row := newAttendanceRow(rec)
	res, err := repo.exec.NamedExecContext(ctx, `
		UPDATE attendance_record SET status = :status, note = :note, updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "updating attendance record")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attendance.Record{}, attendance.ErrNotFound
	}
	return rec, nil
}

func (repo attendanceRepository) QueryRecords(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Record, error) {
	query := `SELECT * FROM attendance_record`
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ClassID != "" {
		conds = append(conds, "class_id = "+arg(filter.ClassID))
	}
	if filter.StudentID != "" {
		conds = append(conds, "student_id = "+arg(filter.StudentID))
	}
	if !filter.DateFrom.IsZero() {
		conds = append(conds, "date >= "+arg(attendance.TruncateDate(filter.DateFrom)))
	}
	if !filter.DateTo.IsZero() {
		conds = append(conds, "date <= "+arg(attendance.TruncateDate(filter.DateTo)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date DESC"

	var rows []attendanceRow
	if err := repo.exec.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records, nil
}
