package attendance

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

var statuses = map[Status]struct{}{
	StatusPresent: {},
	StatusAbsent:  {},
	StatusLate:    {},
	StatusExcused: {},
}

func (s Status) Valid() bool {
	_, ok := statuses[s]
	return ok
}

// Counted reports whether the status counts toward attendance
// (late students were in class).
func (s Status) Counted() bool { return s == StatusPresent || s == StatusLate }

type (
	// Record is one student's attendance mark for one class on one day.
	// There is at most one record per (class, student, date).
	Record struct {
		ID         string    `json:"id"`
		ClassID    string    `json:"class_id"`
		StudentID  string    `json:"student_id"`
		Date       time.Time `json:"date"` // midnight UTC
		Status     Status    `json:"status"`
		Note       string    `json:"note,omitempty"`
		RecordedBy string    `json:"recorded_by"`
		CreatedAt  time.Time `json:"created_at"` // UTC
		UpdatedAt  time.Time `json:"updated_at"` // UTC
	}

	SheetEntry struct {
		StudentID string `json:"student_id" validate:"required"`
		Status    Status `json:"status" validate:"required"`
		Note      string `json:"note"`
	}

	// NewSheet records a whole class register for a day in one call.
	NewSheet struct {
		ClassID    string       `json:"class_id" validate:"required"`
		Date       time.Time    `json:"date" validate:"required"`
		Entries    []SheetEntry `json:"entries" validate:"required,min=1,dive"`
		RecordedBy string       `json:"-"`
	}

	UpdateRecord struct {
		Status Status `json:"status" validate:"required"`
		Note   string `json:"note"`
	}

	QueryFilter struct {
		ClassID   string    `query:"class_id"`
		StudentID string    `query:"student_id"`
		DateFrom  time.Time `query:"date_from"`
		DateTo    time.Time `query:"date_to"`
	}

	// StudentSummary aggregates a student's records over a period.
	StudentSummary struct {
		StudentID string  `json:"student_id"`
		Present   int     `json:"present"`
		Absent    int     `json:"absent"`
		Late      int     `json:"late"`
		Excused   int     `json:"excused"`
		Total     int     `json:"total"`
		Rate      float64 `json:"rate"` // (present + late) / total, 0..1
	}
)

// TruncateDate drops the time-of-day component; records key on the day.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (ns *NewSheet) Validate() error {
	ns.ClassID = core.CleanString(ns.ClassID)
	if err := core.Validate.Struct(ns); err != nil {
		return err
	}

	var fieldErrs []core.FieldError
	seen := make(map[string]struct{}, len(ns.Entries))
	for i := range ns.Entries {
		entry := &ns.Entries[i]
		entry.StudentID = core.CleanString(entry.StudentID)
		if !entry.Status.Valid() {
			fieldErrs = append(fieldErrs, core.FieldError{Field: "entries", Error: "unknown status: " + string(entry.Status)})
		}
		if _, dup := seen[entry.StudentID]; dup {
			fieldErrs = append(fieldErrs, core.FieldError{Field: "entries", Error: "duplicate student: " + entry.StudentID})
		}
		seen[entry.StudentID] = struct{}{}
	}
	if len(fieldErrs) > 0 {
		return core.NewValidationError(errors.New("invalid attendance sheet"), fieldErrs...)
	}

	ns.Date = TruncateDate(ns.Date)
	return nil
}

func (ur *UpdateRecord) Validate() error {
	if err := core.Validate.Struct(ur); err != nil {
		return err
	}
	if !ur.Status.Valid() {
		return core.NewValidationError(
			errors.New("invalid attendance update"),
			core.FieldError{Field: "status", Error: "unknown status: " + string(ur.Status)},
		)
	}
	return nil
}

// Summarize folds records into per-status counts and an attendance rate.
func Summarize(studentID string, records []Record) StudentSummary {
	sum := StudentSummary{StudentID: studentID}
	for _, rec := range records {
		switch rec.Status {
		case StatusPresent:
			sum.Present++
		case StatusAbsent:
			sum.Absent++
		case StatusLate:
			sum.Late++
		case StatusExcused:
			sum.Excused++
		}
		sum.Total++
	}
	if sum.Total > 0 {
		sum.Rate = float64(sum.Present+sum.Late) / float64(sum.Total)
	}
	return sum
}
