package school

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	ErrCampusNotFound     = errors.New("campus not found")
	ErrClassNotFound      = errors.New("class not found")
	ErrTopicNotFound      = errors.New("topic not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrAlreadyEnrolled    = errors.New("student is already enrolled in this class")
)

type (
	Repository interface {
		CreateCampus(ctx context.Context, campus Campus) (Campus, error)
		GetCampus(ctx context.Context, id string) (Campus, error)
		QueryCampuses(ctx context.Context, ordering ...core.DBOrdering) ([]Campus, error)
		UpdateCampus(ctx context.Context, campus Campus) (Campus, error)
		DeleteCampusesByID(ctx context.Context, ids ...string) error

		CreateClass(ctx context.Context, class Class) (Class, error)
		GetClass(ctx context.Context, id string) (Class, error)
		QueryClasses(ctx context.Context, filter *ClassQueryFilter, ordering ...core.DBOrdering) ([]Class, error)
		UpdateClass(ctx context.Context, class Class) (Class, error)
		DeleteClassesByID(ctx context.Context, ids ...string) error

		CreateTopic(ctx context.Context, topic Topic) (Topic, error)
		GetTopic(ctx context.Context, id string) (Topic, error)
		QueryTopicsByClass(ctx context.Context, classID string) ([]Topic, error)
		DeleteTopicsByID(ctx context.Context, ids ...string) error

		// GetEnrollment returns the enrollment row for (class, student)
		// whether active or withdrawn.
		GetEnrollment(ctx context.Context, classID, studentID string) (Enrollment, error)
		SaveEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		QueryEnrollmentsByClass(ctx context.Context, classID string) ([]Enrollment, error)
		QueryEnrollmentsByStudent(ctx context.Context, studentID string) ([]Enrollment, error)
	}

	ServiceInterface interface {
		CreateCampus(ctx context.Context, nc NewCampus) (Campus, error)
		GetCampus(ctx context.Context, id string) (Campus, error)
		QueryCampuses(ctx context.Context, ordering ...core.DBOrdering) ([]Campus, error)
		UpdateCampus(ctx context.Context, id string, uc UpdateCampus) (Campus, error)
		DeleteCampuses(ctx context.Context, ids ...string) error

		CreateClass(ctx context.Context, nc NewClass) (Class, error)
		GetClass(ctx context.Context, id string) (Class, error)
		QueryClasses(ctx context.Context, filter *ClassQueryFilter, ordering ...core.DBOrdering) ([]Class, error)
		UpdateClass(ctx context.Context, id string, uc UpdateClass) (Class, error)
		DeleteClasses(ctx context.Context, ids ...string) error

		CreateTopic(ctx context.Context, nt NewTopic) (Topic, error)
		GetTopic(ctx context.Context, id string) (Topic, error)
		QueryTopicsByClass(ctx context.Context, classID string) ([]Topic, error)
		DeleteTopics(ctx context.Context, ids ...string) error

		Enroll(ctx context.Context, classID, studentID string) (Enrollment, error)
		Withdraw(ctx context.Context, classID, studentID string) (Enrollment, error)
		Roster(ctx context.Context, classID string, includeWithdrawn bool) ([]Enrollment, error)
		StudentEnrollments(ctx context.Context, studentID string) ([]Enrollment, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CreateCampus(ctx context.Context, nc NewCampus) (Campus, error) {
	now := time.Now().UTC()
	campus := Campus{
		Name:      nc.Name,
		Address:   nc.Address,
		Phone:     nc.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	campus, err := svc.repo.CreateCampus(ctx, campus)
	return campus, errors.Wrap(err, "creating campus")
}

func (svc *Service) GetCampus(ctx context.Context, id string) (Campus, error) {
	return svc.repo.GetCampus(ctx, id)
}

func (svc *Service) QueryCampuses(ctx context.Context, ordering ...core.DBOrdering) ([]Campus, error) {
	return svc.repo.QueryCampuses(ctx, ordering...)
}

func (svc *Service) UpdateCampus(ctx context.Context, id string, uc UpdateCampus) (Campus, error) {
	campus, err := svc.repo.GetCampus(ctx, id)
	if err != nil {
		return Campus{}, err
	}
	if err = uc.Validate(campus); err != nil {
		return Campus{}, err
	}

	campus.Name = uc.Name
	campus.Address = uc.Address
	campus.Phone = uc.Phone
	campus.UpdatedAt = time.Now().UTC()
	campus, err = svc.repo.UpdateCampus(ctx, campus)
	return campus, errors.Wrap(err, "updating campus")
}

func (svc *Service) DeleteCampuses(ctx context.Context, ids ...string) error {
	return errors.Wrap(svc.repo.DeleteCampusesByID(ctx, ids...), "deleting campuses")
}

func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	if _, err := svc.repo.GetCampus(ctx, nc.CampusID); err != nil {
		return Class{}, err
	}

	now := time.Now().UTC()
	class := Class{
		CampusID:      nc.CampusID,
		Name:          nc.Name,
		GradeLevel:    nc.GradeLevel,
		HomeTeacherID: nc.HomeTeacherID,
		AcademicYear:  nc.AcademicYear,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	class, err := svc.repo.CreateClass(ctx, class)
	return class, errors.Wrap(err, "creating class")
}

func (svc *Service) GetClass(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *Service) QueryClasses(ctx context.Context, filter *ClassQueryFilter, ordering ...core.DBOrdering) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, filter, ordering...)
}

func (svc *Service) UpdateClass(ctx context.Context, id string, uc UpdateClass) (Class, error) {
	class, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return Class{}, err
	}
	if err = uc.Validate(class); err != nil {
		return Class{}, err
	}

	class.Name = uc.Name
	if uc.GradeLevel != nil {
		class.GradeLevel = *uc.GradeLevel
	}
	class.HomeTeacherID = uc.HomeTeacherID
	class.AcademicYear = uc.AcademicYear
	class.UpdatedAt = time.Now().UTC()
	class, err = svc.repo.UpdateClass(ctx, class)
	return class, errors.Wrap(err, "updating class")
}

func (svc *Service) DeleteClasses(ctx context.Context, ids ...string) error {
	return errors.Wrap(svc.repo.DeleteClassesByID(ctx, ids...), "deleting classes")
}

func (svc *Service) CreateTopic(ctx context.Context, nt NewTopic) (Topic, error) {
	if _, err := svc.repo.GetClass(ctx, nt.ClassID); err != nil {
		return Topic{}, err
	}

	topic := Topic{
		ClassID:   nt.ClassID,
		Subject:   nt.Subject,
		Name:      nt.Name,
		CreatedAt: time.Now().UTC(),
	}
	topic, err := svc.repo.CreateTopic(ctx, topic)
	return topic, errors.Wrap(err, "creating topic")
}

func (svc *Service) GetTopic(ctx context.Context, id string) (Topic, error) {
	return svc.repo.GetTopic(ctx, id)
}

func (svc *Service) QueryTopicsByClass(ctx context.Context, classID string) ([]Topic, error) {
	return svc.repo.QueryTopicsByClass(ctx, classID)
}

func (svc *Service) DeleteTopics(ctx context.Context, ids ...string) error {
	return errors.Wrap(svc.repo.DeleteTopicsByID(ctx, ids...), "deleting topics")
}

// Enroll adds a student to a class. Re-enrolling after a withdrawal
// reactivates the existing row so history survives.
func (svc *Service) Enroll(ctx context.Context, classID, studentID string) (Enrollment, error) {
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return Enrollment{}, err
	}

	enr, err := svc.repo.GetEnrollment(ctx, classID, studentID)
	switch {
	case err == nil:
		if enr.Active() {
			return Enrollment{}, ErrAlreadyEnrolled
		}
		enr.WithdrawnAt = nil
		enr.EnrolledAt = time.Now().UTC()
	case errors.Cause(err) == ErrEnrollmentNotFound:
		enr = Enrollment{
			ClassID:    classID,
			StudentID:  studentID,
			EnrolledAt: time.Now().UTC(),
		}
	default:
		return Enrollment{}, errors.Wrap(err, "loading enrollment")
	}

	enr, err = svc.repo.SaveEnrollment(ctx, enr)
	return enr, errors.Wrap(err, "saving enrollment")
}

// Withdraw marks the enrollment inactive; the row is kept.
func (svc *Service) Withdraw(ctx context.Context, classID, studentID string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollment(ctx, classID, studentID)
	if err != nil {
		return Enrollment{}, err
	}
	if !enr.Active() {
		return enr, nil // idempotent
	}

	now := time.Now().UTC()
	enr.WithdrawnAt = &now
	enr, err = svc.repo.SaveEnrollment(ctx, enr)
	return enr, errors.Wrap(err, "saving enrollment")
}

func (svc *Service) Roster(ctx context.Context, classID string, includeWithdrawn bool) ([]Enrollment, error) {
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return nil, err
	}

	enrs, err := svc.repo.QueryEnrollmentsByClass(ctx, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	if includeWithdrawn {
		return enrs, nil
	}

	active := enrs[:0]
	for _, enr := range enrs {
		if enr.Active() {
			active = append(active, enr)
		}
	}
	return active, nil
}

func (svc *Service) StudentEnrollments(ctx context.Context, studentID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollmentsByStudent(ctx, studentID)
}
