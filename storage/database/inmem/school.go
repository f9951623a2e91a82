package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateCampus(_ context.Context, campus school.Campus) (school.Campus, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	campus.ID = newPK()
	repo.db.campuses[campus.ID] = &campus
	return campus, nil
}

func (repo *schoolRepository) GetCampus(_ context.Context, id string) (school.Campus, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if campus, ok := repo.db.campuses[id]; ok {
		return *campus, nil
	}
	return school.Campus{}, school.ErrCampusNotFound
}

func (repo *schoolRepository) QueryCampuses(_ context.Context, _ ...core.DBOrdering) ([]school.Campus, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	campuses := make([]school.Campus, 0, len(repo.db.campuses))
	for _, campus := range repo.db.campuses {
		campuses = append(campuses, *campus)
	}
	sort.Slice(campuses, func(i, j int) bool { return campuses[i].Name < campuses[j].Name })
	return campuses, nil
}

func (repo *schoolRepository) UpdateCampus(_ context.Context, campus school.Campus) (school.Campus, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.campuses[campus.ID]; !ok {
		return school.Campus{}, school.ErrCampusNotFound
	}
	repo.db.campuses[campus.ID] = &campus
	return campus, nil
}

func (repo *schoolRepository) DeleteCampusesByID(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.campuses, id)
	}
	return nil
}

func (repo *schoolRepository) CreateClass(_ context.Context, class school.Class) (school.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	class.ID = newPK()
	repo.db.classes[class.ID] = &class
	return class, nil
}

func (repo *schoolRepository) GetClass(_ context.Context, id string) (school.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if class, ok := repo.db.classes[id]; ok {
		return *class, nil
	}
	return school.Class{}, school.ErrClassNotFound
}

func (repo *schoolRepository) QueryClasses(_ context.Context, filter *school.ClassQueryFilter, _ ...core.DBOrdering) ([]school.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make([]school.Class, 0, len(repo.db.classes))
	for _, class := range repo.db.classes {
		if filter != nil {
			if filter.CampusID != "" && class.CampusID != filter.CampusID {
				continue
			}
			if filter.AcademicYear != "" && class.AcademicYear != filter.AcademicYear {
				continue
			}
			if filter.GradeLevel != nil && class.GradeLevel != *filter.GradeLevel {
				continue
			}
		}
		classes = append(classes, *class)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

func (repo *schoolRepository) UpdateClass(_ context.Context, class school.Class) (school.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classes[class.ID]; !ok {
		return school.Class{}, school.ErrClassNotFound
	}
	repo.db.classes[class.ID] = &class
	return class, nil
}

func (repo *schoolRepository) DeleteClassesByID(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.classes, id)
	}
	return nil
}

func (repo *schoolRepository) CreateTopic(_ context.Context, topic school.Topic) (school.Topic, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	topic.ID = newPK()
	repo.db.topics[topic.ID] = &topic
	return topic, nil
}

func (repo *schoolRepository) GetTopic(_ context.Context, id string) (school.Topic, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if topic, ok := repo.db.topics[id]; ok {
		return *topic, nil
	}
	return school.Topic{}, school.ErrTopicNotFound
}

func (repo *schoolRepository) QueryTopicsByClass(_ context.Context, classID string) ([]school.Topic, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var topics []school.Topic
	for _, topic := range repo.db.topics {
		if topic.ClassID == classID {
			topics = append(topics, *topic)
		}
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })
	return topics, nil
}

func (repo *schoolRepository) DeleteTopicsByID(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.topics, id)
	}
	return nil
}

func (repo *schoolRepository) GetEnrollment(_ context.Context, classID, studentID string) (school.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if enr, ok := repo.db.enrollments[classID+"|"+studentID]; ok {
		return *enr, nil
	}
	return school.Enrollment{}, school.ErrEnrollmentNotFound
}

func (repo *schoolRepository) SaveEnrollment(_ context.Context, enr school.Enrollment) (school.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if enr.ID == "" {
		enr.ID = newPK()
	}
	repo.db.enrollments[enr.ClassID+"|"+enr.StudentID] = &enr
	return enr, nil
}

func (repo *schoolRepository) QueryEnrollmentsByClass(_ context.Context, classID string) ([]school.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var enrs []school.Enrollment
	for _, enr := range repo.db.enrollments {
		if enr.ClassID == classID {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].EnrolledAt.Before(enrs[j].EnrolledAt) })
	return enrs, nil
}

func (repo *schoolRepository) QueryEnrollmentsByStudent(_ context.Context, studentID string) ([]school.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var enrs []school.Enrollment
	for _, enr := range repo.db.enrollments {
		if enr.StudentID == studentID {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].EnrolledAt.Before(enrs[j].EnrolledAt) })
	return enrs, nil
}
