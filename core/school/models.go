package school

import (
	"time"

	"github.com/trezcool/shule/core"
)

type (
	Campus struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Address   string    `json:"address"`
		Phone     string    `json:"phone"`
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}

	Class struct {
		ID            string    `json:"id"`
		CampusID      string    `json:"campus_id"`
		Name          string    `json:"name"`
		GradeLevel    int       `json:"grade_level"`
		HomeTeacherID string    `json:"home_teacher_id"`
		AcademicYear  string    `json:"academic_year"`
		CreatedAt     time.Time `json:"created_at"` // UTC
		UpdatedAt     time.Time `json:"updated_at"` // UTC
	}

	// Topic is a unit of teaching within a class; mastery is tracked per topic.
	Topic struct {
		ID        string    `json:"id"`
		ClassID   string    `json:"class_id"`
		Subject   string    `json:"subject"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	// Enrollment ties a student to a class. Withdrawal only marks the row;
	// history is never deleted.
	Enrollment struct {
		ID          string     `json:"id"`
		ClassID     string     `json:"class_id"`
		StudentID   string     `json:"student_id"`
		EnrolledAt  time.Time  `json:"enrolled_at"` // UTC
		WithdrawnAt *time.Time `json:"withdrawn_at,omitempty"`
	}
)

func (e Enrollment) Active() bool { return e.WithdrawnAt == nil }

type NewCampus struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

func (nc *NewCampus) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Address = core.CleanString(nc.Address)
	nc.Phone = core.CleanString(nc.Phone)
	return core.Validate.Struct(nc)
}

type UpdateCampus struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

func (uc *UpdateCampus) Validate(orig Campus) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	if addr := core.CleanString(uc.Address); addr != "" {
		uc.Address = addr
	} else {
		uc.Address = orig.Address
	}
	if phone := core.CleanString(uc.Phone); phone != "" {
		uc.Phone = phone
	} else {
		uc.Phone = orig.Phone
	}
	return core.Validate.Struct(uc)
}

type NewClass struct {
	CampusID      string `json:"campus_id" validate:"required"`
	Name          string `json:"name" validate:"required"`
	GradeLevel    int    `json:"grade_level" validate:"gte=0,lte=13"`
	HomeTeacherID string `json:"home_teacher_id"`
	AcademicYear  string `json:"academic_year" validate:"required"`
}

func (nc *NewClass) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.AcademicYear = core.CleanString(nc.AcademicYear)
	return core.Validate.Struct(nc)
}

type UpdateClass struct {
	Name          string `json:"name"`
	GradeLevel    *int   `json:"grade_level" validate:"omitempty,gte=0,lte=13"`
	HomeTeacherID string `json:"home_teacher_id"`
	AcademicYear  string `json:"academic_year"`
}

func (uc *UpdateClass) Validate(orig Class) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	if year := core.CleanString(uc.AcademicYear); year != "" {
		uc.AcademicYear = year
	} else {
		uc.AcademicYear = orig.AcademicYear
	}
	if uc.HomeTeacherID == "" {
		uc.HomeTeacherID = orig.HomeTeacherID
	}
	return core.Validate.Struct(uc)
}

type NewTopic struct {
	ClassID string `json:"class_id" validate:"required"`
	Subject string `json:"subject" validate:"required"`
	Name    string `json:"name" validate:"required"`
}

func (nt *NewTopic) Validate() error {
	nt.Subject = core.CleanString(nt.Subject)
	nt.Name = core.CleanString(nt.Name)
	return core.Validate.Struct(nt)
}

type ClassQueryFilter struct {
	CampusID     string `query:"campus_id"`
	AcademicYear string `query:"academic_year"`
	GradeLevel   *int   `query:"grade_level"`
}

func (qf *ClassQueryFilter) IsEmpty() bool {
	return qf.CampusID == "" && qf.AcademicYear == "" && qf.GradeLevel == nil
}
