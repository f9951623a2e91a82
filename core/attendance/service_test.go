package attendance

import (
	"context"
	"math"
	"strconv"
	"testing"
	"time"
)

type fakeRepo struct {
	records map[string]Record // key: classID|studentID|date
	byID    map[string]Record
	seq     int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]Record), byID: make(map[string]Record)}
}

func (r *fakeRepo) key(rec Record) string {
	return rec.ClassID + "|" + rec.StudentID + "|" + rec.Date.Format("2006-01-02")
}

func (r *fakeRepo) UpsertRecord(_ context.Context, rec Record) (Record, error) {
	if existing, ok := r.records[r.key(rec)]; ok {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	} else {
		r.seq++
		rec.ID = strconv.Itoa(r.seq)
	}
	r.records[r.key(rec)] = rec
	r.byID[rec.ID] = rec
	return rec, nil
}

func (r *fakeRepo) GetRecord(_ context.Context, id string) (Record, error) {
	rec, ok := r.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (r *fakeRepo) UpdateRecord(_ context.Context, rec Record) (Record, error) {
	r.records[r.key(rec)] = rec
	r.byID[rec.ID] = rec
	return rec, nil
}

func (r *fakeRepo) QueryRecords(_ context.Context, filter QueryFilter) ([]Record, error) {
	var out []Record
	for _, rec := range r.records {
		if filter.ClassID != "" && rec.ClassID != filter.ClassID {
			continue
		}
		if filter.StudentID != "" && rec.StudentID != filter.StudentID {
			continue
		}
		if !filter.DateFrom.IsZero() && rec.Date.Before(filter.DateFrom) {
			continue
		}
		if !filter.DateTo.IsZero() && rec.Date.After(filter.DateTo) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func day(daysAgo int) time.Time {
	return TruncateDate(time.Now().UTC().AddDate(0, 0, -daysAgo))
}

func TestService_RecordSheetUpserts(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo)

	sheet := NewSheet{
		ClassID: "class-1",
		Date:    day(0),
		Entries: []SheetEntry{
			{StudentID: "student-1", Status: StatusPresent},
			{StudentID: "student-2", Status: StatusAbsent, Note: "sick"},
		},
		RecordedBy: "teacher-1",
	}
	if err := sheet.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	records, err := svc.RecordSheet(ctx, sheet)
	if err != nil {
		t.Fatalf("RecordSheet() failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	// retaking the register for the same day overwrites, not duplicates
	sheet.Entries = []SheetEntry{{StudentID: "student-2", Status: StatusLate}}
	if _, err = svc.RecordSheet(ctx, sheet); err != nil {
		t.Fatalf("RecordSheet() failed: %v", err)
	}
	all, _ := repo.QueryRecords(ctx, QueryFilter{ClassID: "class-1"})
	if len(all) != 2 {
		t.Fatalf("stored records = %d, want 2", len(all))
	}
	for _, rec := range all {
		if rec.StudentID == "student-2" && rec.Status != StatusLate {
			t.Errorf("student-2 status = %s, want late", rec.Status)
		}
	}
}

func TestNewSheet_Validate(t *testing.T) {
	tests := []struct {
		name    string
		sheet   NewSheet
		wantErr bool
	}{
		{
			name: "ok",
			sheet: NewSheet{ClassID: "c1", Date: day(0), Entries: []SheetEntry{
				{StudentID: "s1", Status: StatusPresent},
			}},
		},
		{
			name:    "no entries",
			sheet:   NewSheet{ClassID: "c1", Date: day(0)},
			wantErr: true,
		},
		{
			name: "unknown status",
			sheet: NewSheet{ClassID: "c1", Date: day(0), Entries: []SheetEntry{
				{StudentID: "s1", Status: "vanished"},
			}},
			wantErr: true,
		},
		{
			name: "duplicate student",
			sheet: NewSheet{ClassID: "c1", Date: day(0), Entries: []SheetEntry{
				{StudentID: "s1", Status: StatusPresent},
				{StudentID: "s1", Status: StatusAbsent},
			}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.sheet.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo)

	records, err := svc.RecordSheet(ctx, NewSheet{
		ClassID:    "class-1",
		Date:       day(0),
		Entries:    []SheetEntry{{StudentID: "student-1", Status: StatusAbsent}},
		RecordedBy: "teacher-1",
	})
	if err != nil {
		t.Fatalf("RecordSheet() failed: %v", err)
	}

	got, err := svc.Update(ctx, records[0].ID, UpdateRecord{Status: StatusExcused, Note: "doctor's letter"})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if got.Status != StatusExcused || got.Note != "doctor's letter" {
		t.Errorf("updated record = %+v", got)
	}

	if _, err = svc.Update(ctx, "nope", UpdateRecord{Status: StatusPresent}); err != ErrNotFound {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestService_StudentSummary(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo)

	marks := []struct {
		daysAgo int
		status  Status
	}{
		{daysAgo: 1, status: StatusPresent},
		{daysAgo: 2, status: StatusPresent},
		{daysAgo: 3, status: StatusLate},
		{daysAgo: 4, status: StatusAbsent},
		{daysAgo: 5, status: StatusExcused},
		{daysAgo: 40, status: StatusAbsent}, // outside the window
	}
	for _, mk := range marks {
		if _, err := svc.RecordSheet(ctx, NewSheet{
			ClassID:    "class-1",
			Date:       day(mk.daysAgo),
			Entries:    []SheetEntry{{StudentID: "student-1", Status: mk.status}},
			RecordedBy: "teacher-1",
		}); err != nil {
			t.Fatalf("RecordSheet() failed: %v", err)
		}
	}

	sum, err := svc.StudentSummary(ctx, "student-1", day(30), day(0))
	if err != nil {
		t.Fatalf("StudentSummary() failed: %v", err)
	}
	if sum.Present != 2 || sum.Late != 1 || sum.Absent != 1 || sum.Excused != 1 || sum.Total != 5 {
		t.Errorf("summary = %+v", sum)
	}
	if math.Abs(sum.Rate-0.6) > 0.0001 { // (2 present + 1 late) / 5
		t.Errorf("rate = %v, want 0.6", sum.Rate)
	}
}

func TestSummarize_Empty(t *testing.T) {
	sum := Summarize("student-1", nil)
	if sum.Total != 0 || sum.Rate != 0 {
		t.Errorf("empty summary = %+v", sum)
	}
}
