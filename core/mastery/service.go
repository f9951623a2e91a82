package mastery

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("mastery record not found")

type (
	Repository interface {
		GetTopicMastery(ctx context.Context, studentID, topicID string) (TopicMastery, error)
		// SaveTopicMastery inserts or updates the record keyed on (student, topic).
		SaveTopicMastery(ctx context.Context, m TopicMastery) (TopicMastery, error)
		QueryByStudent(ctx context.Context, studentID string) ([]TopicMastery, error)
		QueryByTopic(ctx context.Context, topicID string) ([]TopicMastery, error)
	}

	ServiceInterface interface {
		RecordAssessment(ctx context.Context, res AssessmentResult) (TopicMastery, error)
		GetTopicMastery(ctx context.Context, studentID, topicID string) (TopicMastery, error)
		StudentSummary(ctx context.Context, studentID string) (StudentSummary, error)
		TopicAggregate(ctx context.Context, topicID string) (TopicAggregate, error)
		Leaderboard(ctx context.Context, topicID string, topN int) ([]LeaderboardEntry, error)
		Config() Config
	}

	Service struct {
		repo    Repository
		cfg     Config
		nowFunc func() time.Time // mockable
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating mastery config")
	}
	return &Service{repo: repo, cfg: cfg, nowFunc: time.Now}, nil
}

func (svc *Service) Config() Config { return svc.cfg }

// RecordAssessment folds a graded assessment into the student's stored
// mastery record, creating it on first contact with the topic.
func (svc *Service) RecordAssessment(ctx context.Context, res AssessmentResult) (TopicMastery, error) {
	m, err := svc.repo.GetTopicMastery(ctx, res.StudentID, res.TopicID)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return TopicMastery{}, errors.Wrap(err, "loading mastery record")
		}
		m = NewTopicMastery(res.StudentID, res.TopicID)
	}

	m = Apply(m, res, svc.cfg)
	m, err = svc.repo.SaveTopicMastery(ctx, m)
	if err != nil {
		return TopicMastery{}, errors.Wrap(err, "saving mastery record")
	}
	return m, nil
}

// GetTopicMastery returns the stored record with decay applied as of now.
func (svc *Service) GetTopicMastery(ctx context.Context, studentID, topicID string) (TopicMastery, error) {
	m, err := svc.repo.GetTopicMastery(ctx, studentID, topicID)
	if err != nil {
		return TopicMastery{}, err
	}
	return Decayed(m, svc.nowFunc(), svc.cfg), nil
}

func (svc *Service) StudentSummary(ctx context.Context, studentID string) (StudentSummary, error) {
	records, err := svc.repo.QueryByStudent(ctx, studentID)
	if err != nil {
		return StudentSummary{}, errors.Wrap(err, "querying student mastery")
	}
	return BuildStudentSummary(studentID, records, svc.nowFunc(), svc.cfg), nil
}

func (svc *Service) TopicAggregate(ctx context.Context, topicID string) (TopicAggregate, error) {
	records, err := svc.repo.QueryByTopic(ctx, topicID)
	if err != nil {
		return TopicAggregate{}, errors.Wrap(err, "querying topic mastery")
	}
	return BuildTopicAggregate(topicID, records, svc.nowFunc(), svc.cfg), nil
}

func (svc *Service) Leaderboard(ctx context.Context, topicID string, topN int) ([]LeaderboardEntry, error) {
	records, err := svc.repo.QueryByTopic(ctx, topicID)
	if err != nil {
		return nil, errors.Wrap(err, "querying topic mastery")
	}

	now := svc.nowFunc()
	overalls := make(map[string]float64, len(records))
	for _, m := range records {
		overalls[m.StudentID] = Overall(Decayed(m, now, svc.cfg), svc.cfg)
	}
	return BuildLeaderboard(overalls, topN), nil
}
