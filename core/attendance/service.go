package attendance

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("attendance record not found")

type (
	Repository interface {
		// UpsertRecord inserts or updates the record keyed on (class, student, date).
		UpsertRecord(ctx context.Context, rec Record) (Record, error)
		GetRecord(ctx context.Context, id string) (Record, error)
		UpdateRecord(ctx context.Context, rec Record) (Record, error)
		QueryRecords(ctx context.Context, filter QueryFilter) ([]Record, error)
	}

	ServiceInterface interface {
		RecordSheet(ctx context.Context, ns NewSheet) ([]Record, error)
		Update(ctx context.Context, id string, ur UpdateRecord) (Record, error)
		Query(ctx context.Context, filter QueryFilter) ([]Record, error)
		StudentSummary(ctx context.Context, studentID string, from, to time.Time) (StudentSummary, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordSheet upserts one record per sheet entry. Retaking a register for
// the same day overwrites the previous marks.
func (svc *Service) RecordSheet(ctx context.Context, ns NewSheet) ([]Record, error) {
	now := time.Now().UTC()
	records := make([]Record, 0, len(ns.Entries))
	for _, entry := range ns.Entries {
		rec := Record{
			ClassID:    ns.ClassID,
			StudentID:  entry.StudentID,
			Date:       ns.Date,
			Status:     entry.Status,
			Note:       entry.Note,
			RecordedBy: ns.RecordedBy,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		rec, err := svc.repo.UpsertRecord(ctx, rec)
		if err != nil {
			return nil, errors.Wrapf(err, "recording attendance for student %s", entry.StudentID)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (svc *Service) Update(ctx context.Context, id string, ur UpdateRecord) (Record, error) {
	rec, err := svc.repo.GetRecord(ctx, id)
	if err != nil {
		return Record{}, err
	}

	rec.Status = ur.Status
	rec.Note = ur.Note
	rec.UpdatedAt = time.Now().UTC()
	rec, err = svc.repo.UpdateRecord(ctx, rec)
	return rec, errors.Wrap(err, "updating attendance record")
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, filter)
}

func (svc *Service) StudentSummary(ctx context.Context, studentID string, from, to time.Time) (StudentSummary, error) {
	records, err := svc.repo.QueryRecords(ctx, QueryFilter{
		StudentID: studentID,
		DateFrom:  from,
		DateTo:    to,
	})
	if err != nil {
		return StudentSummary{}, errors.Wrap(err, "querying attendance records")
	}
	return Summarize(studentID, records), nil
}
