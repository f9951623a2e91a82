package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core/achievement"
)

type achievementRepository struct {
	db *DB
}

var _ achievement.Repository = (*achievementRepository)(nil) // interface compliance check

func NewAchievementRepository(db *DB) *achievementRepository {
	return &achievementRepository{db: db}
}

func (repo *achievementRepository) CreateAchievement(_ context.Context, ach achievement.Achievement) (achievement.Achievement, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	ach.ID = newPK()
	repo.db.achievements[ach.ID] = &ach
	return ach, nil
}

func (repo *achievementRepository) GetAchievement(_ context.Context, id string) (achievement.Achievement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if ach, ok := repo.db.achievements[id]; ok {
		return *ach, nil
	}
	return achievement.Achievement{}, achievement.ErrNotFound
}

func (repo *achievementRepository) GetAchievementByCode(_ context.Context, code string) (achievement.Achievement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, ach := range repo.db.achievements {
		if ach.Code == code {
			return *ach, nil
		}
	}
	return achievement.Achievement{}, achievement.ErrNotFound
}

func (repo *achievementRepository) QueryAchievements(_ context.Context) ([]achievement.Achievement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	achs := make([]achievement.Achievement, 0, len(repo.db.achievements))
	for _, ach := range repo.db.achievements {
		achs = append(achs, *ach)
	}
	sort.Slice(achs, func(i, j int) bool { return achs[i].Name < achs[j].Name })
	return achs, nil
}

func (repo *achievementRepository) UpdateAchievement(_ context.Context, ach achievement.Achievement) (achievement.Achievement, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.achievements[ach.ID]; !ok {
		return achievement.Achievement{}, achievement.ErrNotFound
	}
	repo.db.achievements[ach.ID] = &ach
	return ach, nil
}

func (repo *achievementRepository) DeleteAchievementsByID(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.achievements, id)
	}
	return nil
}

func (repo *achievementRepository) CreateAward(_ context.Context, awd achievement.Award) (achievement.Award, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	awd.ID = newPK()
	repo.db.awards[awd.AchievementID+"|"+awd.StudentID] = &awd
	return awd, nil
}

func (repo *achievementRepository) GetAward(_ context.Context, achievementID, studentID string) (achievement.Award, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if awd, ok := repo.db.awards[achievementID+"|"+studentID]; ok {
		return *awd, nil
	}
	return achievement.Award{}, achievement.ErrAwardNotFound
}

func (repo *achievementRepository) DeleteAward(_ context.Context, achievementID, studentID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.awards, achievementID+"|"+studentID)
	return nil
}

func (repo *achievementRepository) QueryAwardsByStudent(_ context.Context, studentID string) ([]achievement.Award, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var awards []achievement.Award
	for _, awd := range repo.db.awards {
		if awd.StudentID == studentID {
			awards = append(awards, *awd)
		}
	}
	return awards, nil
}

func (repo *achievementRepository) QueryAwards(_ context.Context) ([]achievement.Award, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	awards := make([]achievement.Award, 0, len(repo.db.awards))
	for _, awd := range repo.db.awards {
		awards = append(awards, *awd)
	}
	return awards, nil
}
