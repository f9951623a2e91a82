package school

import (
	"context"
	"strconv"
	"testing"

	"github.com/trezcool/shule/core"
)

type fakeRepo struct {
	campuses    map[string]Campus
	classes     map[string]Class
	topics      map[string]Topic
	enrollments map[string]Enrollment // key: classID|studentID
	seq         int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		campuses:    make(map[string]Campus),
		classes:     make(map[string]Class),
		topics:      make(map[string]Topic),
		enrollments: make(map[string]Enrollment),
	}
}

func (r *fakeRepo) nextID() string {
	r.seq++
	return strconv.Itoa(r.seq)
}

func (r *fakeRepo) CreateCampus(_ context.Context, c Campus) (Campus, error) {
	c.ID = r.nextID()
	r.campuses[c.ID] = c
	return c, nil
}

func (r *fakeRepo) GetCampus(_ context.Context, id string) (Campus, error) {
	c, ok := r.campuses[id]
	if !ok {
		return Campus{}, ErrCampusNotFound
	}
	return c, nil
}

func (r *fakeRepo) QueryCampuses(_ context.Context, _ ...core.DBOrdering) ([]Campus, error) {
	out := make([]Campus, 0, len(r.campuses))
	for _, c := range r.campuses {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeRepo) UpdateCampus(_ context.Context, c Campus) (Campus, error) {
	r.campuses[c.ID] = c
	return c, nil
}

func (r *fakeRepo) DeleteCampusesByID(_ context.Context, ids ...string) error {
	for _, id := range ids {
		delete(r.campuses, id)
	}
	return nil
}

func (r *fakeRepo) CreateClass(_ context.Context, c Class) (Class, error) {
	c.ID = r.nextID()
	r.classes[c.ID] = c
	return c, nil
}

func (r *fakeRepo) GetClass(_ context.Context, id string) (Class, error) {
	c, ok := r.classes[id]
	if !ok {
		return Class{}, ErrClassNotFound
	}
	return c, nil
}

func (r *fakeRepo) QueryClasses(_ context.Context, filter *ClassQueryFilter, _ ...core.DBOrdering) ([]Class, error) {
	var out []Class
	for _, c := range r.classes {
		if filter != nil && filter.CampusID != "" && c.CampusID != filter.CampusID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeRepo) UpdateClass(_ context.Context, c Class) (Class, error) {
	r.classes[c.ID] = c
	return c, nil
}

func (r *fakeRepo) DeleteClassesByID(_ context.Context, ids ...string) error {
	for _, id := range ids {
		delete(r.classes, id)
	}
	return nil
}

func (r *fakeRepo) CreateTopic(_ context.Context, t Topic) (Topic, error) {
	t.ID = r.nextID()
	r.topics[t.ID] = t
	return t, nil
}

func (r *fakeRepo) GetTopic(_ context.Context, id string) (Topic, error) {
	t, ok := r.topics[id]
	if !ok {
		return Topic{}, ErrTopicNotFound
	}
	return t, nil
}

func (r *fakeRepo) QueryTopicsByClass(_ context.Context, classID string) ([]Topic, error) {
	var out []Topic
	for _, t := range r.topics {
		if t.ClassID == classID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeRepo) DeleteTopicsByID(_ context.Context, ids ...string) error {
	for _, id := range ids {
		delete(r.topics, id)
	}
	return nil
}

func (r *fakeRepo) GetEnrollment(_ context.Context, classID, studentID string) (Enrollment, error) {
	enr, ok := r.enrollments[classID+"|"+studentID]
	if !ok {
		return Enrollment{}, ErrEnrollmentNotFound
	}
	return enr, nil
}

func (r *fakeRepo) SaveEnrollment(_ context.Context, enr Enrollment) (Enrollment, error) {
	if enr.ID == "" {
		enr.ID = r.nextID()
	}
	r.enrollments[enr.ClassID+"|"+enr.StudentID] = enr
	return enr, nil
}

func (r *fakeRepo) QueryEnrollmentsByClass(_ context.Context, classID string) ([]Enrollment, error) {
	var out []Enrollment
	for _, enr := range r.enrollments {
		if enr.ClassID == classID {
			out = append(out, enr)
		}
	}
	return out, nil
}

func (r *fakeRepo) QueryEnrollmentsByStudent(_ context.Context, studentID string) ([]Enrollment, error) {
	var out []Enrollment
	for _, enr := range r.enrollments {
		if enr.StudentID == studentID {
			out = append(out, enr)
		}
	}
	return out, nil
}

func mustClass(t *testing.T, svc *Service) Class {
	t.Helper()
	ctx := context.Background()
	campus, err := svc.CreateCampus(ctx, NewCampus{Name: "Main Campus"})
	if err != nil {
		t.Fatalf("CreateCampus() failed: %v", err)
	}
	class, err := svc.CreateClass(ctx, NewClass{
		CampusID:     campus.ID,
		Name:         "Grade 5A",
		GradeLevel:   5,
		AcademicYear: "2026",
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return class
}

func TestService_Enroll(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo())
	class := mustClass(t, svc)

	enr, err := svc.Enroll(ctx, class.ID, "student-1")
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	if !enr.Active() {
		t.Error("new enrollment should be active")
	}

	// double enrollment is rejected
	if _, err = svc.Enroll(ctx, class.ID, "student-1"); err != ErrAlreadyEnrolled {
		t.Errorf("Enroll() error = %v, want ErrAlreadyEnrolled", err)
	}

	// unknown class is rejected
	if _, err = svc.Enroll(ctx, "nope", "student-1"); err != ErrClassNotFound {
		t.Errorf("Enroll() error = %v, want ErrClassNotFound", err)
	}
}

func TestService_WithdrawKeepsHistory(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo())
	class := mustClass(t, svc)

	if _, err := svc.Enroll(ctx, class.ID, "student-1"); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	enr, err := svc.Withdraw(ctx, class.ID, "student-1")
	if err != nil {
		t.Fatalf("Withdraw() failed: %v", err)
	}
	if enr.Active() || enr.WithdrawnAt == nil {
		t.Errorf("withdrawn enrollment still active: %+v", enr)
	}

	// idempotent
	again, err := svc.Withdraw(ctx, class.ID, "student-1")
	if err != nil {
		t.Fatalf("Withdraw() failed: %v", err)
	}
	if !again.WithdrawnAt.Equal(*enr.WithdrawnAt) {
		t.Error("second Withdraw() should not move WithdrawnAt")
	}

	// the row survives and re-enrolling reactivates it
	roster, err := svc.Roster(ctx, class.ID, true)
	if err != nil {
		t.Fatalf("Roster() failed: %v", err)
	}
	if len(roster) != 1 {
		t.Fatalf("roster (with withdrawn) len = %d, want 1", len(roster))
	}
	if _, err = svc.Enroll(ctx, class.ID, "student-1"); err != nil {
		t.Fatalf("re-Enroll() failed: %v", err)
	}
}

func TestService_Roster(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo())
	class := mustClass(t, svc)

	for _, sid := range []string{"student-1", "student-2", "student-3"} {
		if _, err := svc.Enroll(ctx, class.ID, sid); err != nil {
			t.Fatalf("Enroll(%s) failed: %v", sid, err)
		}
	}
	if _, err := svc.Withdraw(ctx, class.ID, "student-2"); err != nil {
		t.Fatalf("Withdraw() failed: %v", err)
	}

	roster, err := svc.Roster(ctx, class.ID, false)
	if err != nil {
		t.Fatalf("Roster() failed: %v", err)
	}
	if len(roster) != 2 {
		t.Errorf("active roster len = %d, want 2", len(roster))
	}
	for _, enr := range roster {
		if enr.StudentID == "student-2" {
			t.Error("withdrawn student should not be on the active roster")
		}
	}
}

func TestService_UpdateCampusKeepsUnsetFields(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo())

	campus, err := svc.CreateCampus(ctx, NewCampus{Name: "Main", Address: "12 Uhuru Rd", Phone: "+255700000001"})
	if err != nil {
		t.Fatalf("CreateCampus() failed: %v", err)
	}

	got, err := svc.UpdateCampus(ctx, campus.ID, UpdateCampus{Phone: "+255700000002"})
	if err != nil {
		t.Fatalf("UpdateCampus() failed: %v", err)
	}
	if got.Name != "Main" || got.Address != "12 Uhuru Rd" {
		t.Errorf("unset fields changed: %+v", got)
	}
	if got.Phone != "+255700000002" {
		t.Errorf("phone = %s, want +255700000002", got.Phone)
	}
	if got.UpdatedAt.Before(campus.UpdatedAt) {
		t.Errorf("UpdatedAt went backwards: %v -> %v", campus.UpdatedAt, got.UpdatedAt)
	}
}
