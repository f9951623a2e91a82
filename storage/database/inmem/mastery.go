package inmemdb

import (
	"context"

	"github.com/trezcool/shule/core/mastery"
)

type masteryRepository struct {
	db *DB
}

var _ mastery.Repository = (*masteryRepository)(nil) // interface compliance check

func NewMasteryRepository(db *DB) *masteryRepository {
	return &masteryRepository{db: db}
}

func masteryKey(studentID, topicID string) string { return studentID + "|" + topicID }

func (repo *masteryRepository) GetTopicMastery(_ context.Context, studentID, topicID string) (mastery.TopicMastery, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if m, ok := repo.db.masteries[masteryKey(studentID, topicID)]; ok {
		return *m, nil
	}
	return mastery.TopicMastery{}, mastery.ErrNotFound
}

func (repo *masteryRepository) SaveTopicMastery(_ context.Context, m mastery.TopicMastery) (mastery.TopicMastery, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.masteries[masteryKey(m.StudentID, m.TopicID)] = &m
	return m, nil
}

func (repo *masteryRepository) QueryByStudent(_ context.Context, studentID string) ([]mastery.TopicMastery, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var records []mastery.TopicMastery
	for _, m := range repo.db.masteries {
		if m.StudentID == studentID {
			records = append(records, *m)
		}
	}
	return records, nil
}

func (repo *masteryRepository) QueryByTopic(_ context.Context, topicID string) ([]mastery.TopicMastery, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var records []mastery.TopicMastery
	for _, m := range repo.db.masteries {
		if m.TopicID == topicID {
			records = append(records, *m)
		}
	}
	return records, nil
}
