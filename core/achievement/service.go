package achievement

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNotFound       = errors.New("achievement not found")
	ErrAwardNotFound  = errors.New("award not found")
	ErrCodeExists     = errors.New("an achievement with this code already exists")
	ErrAlreadyAwarded = errors.New("student already holds this achievement")
)

type (
	Repository interface {
		CreateAchievement(ctx context.Context, ach Achievement) (Achievement, error)
		GetAchievement(ctx context.Context, id string) (Achievement, error)
		GetAchievementByCode(ctx context.Context, code string) (Achievement, error)
		QueryAchievements(ctx context.Context) ([]Achievement, error)
		UpdateAchievement(ctx context.Context, ach Achievement) (Achievement, error)
		DeleteAchievementsByID(ctx context.Context, ids ...string) error

		CreateAward(ctx context.Context, awd Award) (Award, error)
		// GetAward returns the award row for (achievement, student).
		GetAward(ctx context.Context, achievementID, studentID string) (Award, error)
		DeleteAward(ctx context.Context, achievementID, studentID string) error
		QueryAwardsByStudent(ctx context.Context, studentID string) ([]Award, error)
		// QueryAwards returns all awards; used for leaderboards.
		QueryAwards(ctx context.Context) ([]Award, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, na NewAchievement) (Achievement, error)
		Get(ctx context.Context, id string) (Achievement, error)
		Query(ctx context.Context) ([]Achievement, error)
		Delete(ctx context.Context, ids ...string) error

		Award(ctx context.Context, na NewAward) (Award, error)
		Revoke(ctx context.Context, achievementID, studentID string) error
		StudentAchievements(ctx context.Context, studentID string) (StudentAchievements, error)
		Leaderboard(ctx context.Context, topN int) ([]LeaderboardEntry, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, na NewAchievement) (Achievement, error) {
	if _, err := svc.repo.GetAchievementByCode(ctx, na.Code); err == nil {
		return Achievement{}, ErrCodeExists
	} else if errors.Cause(err) != ErrNotFound {
		return Achievement{}, errors.Wrap(err, "checking code uniqueness")
	}

	now := time.Now().UTC()
	ach := Achievement{
		Code:        na.Code,
		Name:        na.Name,
		Description: na.Description,
		Points:      na.Points,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ach, err := svc.repo.CreateAchievement(ctx, ach)
	return ach, errors.Wrap(err, "creating achievement")
}

func (svc *Service) Get(ctx context.Context, id string) (Achievement, error) {
	return svc.repo.GetAchievement(ctx, id)
}

func (svc *Service) Query(ctx context.Context) ([]Achievement, error) {
	return svc.repo.QueryAchievements(ctx)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return errors.Wrap(svc.repo.DeleteAchievementsByID(ctx, ids...), "deleting achievements")
}

// Award grants an achievement once per student.
func (svc *Service) Award(ctx context.Context, na NewAward) (Award, error) {
	if _, err := svc.repo.GetAchievement(ctx, na.AchievementID); err != nil {
		return Award{}, err
	}

	if _, err := svc.repo.GetAward(ctx, na.AchievementID, na.StudentID); err == nil {
		return Award{}, ErrAlreadyAwarded
	} else if errors.Cause(err) != ErrAwardNotFound {
		return Award{}, errors.Wrap(err, "checking award uniqueness")
	}

	awd := Award{
		AchievementID: na.AchievementID,
		StudentID:     na.StudentID,
		AwardedBy:     na.AwardedBy,
		Note:          na.Note,
		AwardedAt:     time.Now().UTC(),
	}
	awd, err := svc.repo.CreateAward(ctx, awd)
	return awd, errors.Wrap(err, "creating award")
}

func (svc *Service) Revoke(ctx context.Context, achievementID, studentID string) error {
	if _, err := svc.repo.GetAward(ctx, achievementID, studentID); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteAward(ctx, achievementID, studentID), "deleting award")
}

func (svc *Service) StudentAchievements(ctx context.Context, studentID string) (StudentAchievements, error) {
	awards, err := svc.repo.QueryAwardsByStudent(ctx, studentID)
	if err != nil {
		return StudentAchievements{}, errors.Wrap(err, "querying awards")
	}

	out := StudentAchievements{StudentID: studentID, Awards: make([]AwardDetail, 0, len(awards))}
	for _, awd := range awards {
		ach, err := svc.repo.GetAchievement(ctx, awd.AchievementID)
		if err != nil {
			return StudentAchievements{}, errors.Wrapf(err, "loading achievement %s", awd.AchievementID)
		}
		out.Awards = append(out.Awards, AwardDetail{Award: awd, Achievement: ach})
		out.TotalPoints += ach.Points
	}
	sort.Slice(out.Awards, func(i, j int) bool {
		return out.Awards[i].Award.AwardedAt.After(out.Awards[j].Award.AwardedAt)
	})
	return out, nil
}

func (svc *Service) Leaderboard(ctx context.Context, topN int) ([]LeaderboardEntry, error) {
	awards, err := svc.repo.QueryAwards(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying awards")
	}

	pointsByAch := make(map[string]int)
	points := make(map[string]int)
	for _, awd := range awards {
		pts, ok := pointsByAch[awd.AchievementID]
		if !ok {
			ach, err := svc.repo.GetAchievement(ctx, awd.AchievementID)
			if err != nil {
				return nil, errors.Wrapf(err, "loading achievement %s", awd.AchievementID)
			}
			pts = ach.Points
			pointsByAch[awd.AchievementID] = pts
		}
		points[awd.StudentID] += pts
	}
	return BuildLeaderboard(points, topN), nil
}
