package achievement

import (
	"context"
	"strconv"
	"testing"
)

type fakeRepo struct {
	achievements map[string]Achievement
	awards       map[string]Award // key: achievementID|studentID
	seq          int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{achievements: make(map[string]Achievement), awards: make(map[string]Award)}
}

func (r *fakeRepo) CreateAchievement(_ context.Context, ach Achievement) (Achievement, error) {
	r.seq++
	ach.ID = strconv.Itoa(r.seq)
	r.achievements[ach.ID] = ach
	return ach, nil
}

func (r *fakeRepo) GetAchievement(_ context.Context, id string) (Achievement, error) {
	ach, ok := r.achievements[id]
	if !ok {
		return Achievement{}, ErrNotFound
	}
	return ach, nil
}

func (r *fakeRepo) GetAchievementByCode(_ context.Context, code string) (Achievement, error) {
	for _, ach := range r.achievements {
		if ach.Code == code {
			return ach, nil
		}
	}
	return Achievement{}, ErrNotFound
}

func (r *fakeRepo) QueryAchievements(_ context.Context) ([]Achievement, error) {
	out := make([]Achievement, 0, len(r.achievements))
	for _, ach := range r.achievements {
		out = append(out, ach)
	}
	return out, nil
}

func (r *fakeRepo) UpdateAchievement(_ context.Context, ach Achievement) (Achievement, error) {
	r.achievements[ach.ID] = ach
	return ach, nil
}

func (r *fakeRepo) DeleteAchievementsByID(_ context.Context, ids ...string) error {
	for _, id := range ids {
		delete(r.achievements, id)
	}
	return nil
}

func (r *fakeRepo) CreateAward(_ context.Context, awd Award) (Award, error) {
	r.seq++
	awd.ID = strconv.Itoa(r.seq)
	r.awards[awd.AchievementID+"|"+awd.StudentID] = awd
	return awd, nil
}

func (r *fakeRepo) GetAward(_ context.Context, achievementID, studentID string) (Award, error) {
	awd, ok := r.awards[achievementID+"|"+studentID]
	if !ok {
		return Award{}, ErrAwardNotFound
	}
	return awd, nil
}

func (r *fakeRepo) DeleteAward(_ context.Context, achievementID, studentID string) error {
	delete(r.awards, achievementID+"|"+studentID)
	return nil
}

func (r *fakeRepo) QueryAwardsByStudent(_ context.Context, studentID string) ([]Award, error) {
	var out []Award
	for _, awd := range r.awards {
		if awd.StudentID == studentID {
			out = append(out, awd)
		}
	}
	return out, nil
}

func (r *fakeRepo) QueryAwards(_ context.Context) ([]Award, error) {
	out := make([]Award, 0, len(r.awards))
	for _, awd := range r.awards {
		out = append(out, awd)
	}
	return out, nil
}

func mustCreate(t *testing.T, svc *Service, code string, points int) Achievement {
	t.Helper()
	ach, err := svc.Create(context.Background(), NewAchievement{Code: code, Name: code, Points: points})
	if err != nil {
		t.Fatalf("Create(%s) failed: %v", code, err)
	}
	return ach
}

func TestService_CreateRejectsDuplicateCode(t *testing.T) {
	svc := NewService(newFakeRepo())
	mustCreate(t, svc, "perfect_attendance", 50)

	_, err := svc.Create(context.Background(), NewAchievement{Code: "perfect_attendance", Name: "dup", Points: 10})
	if err != ErrCodeExists {
		t.Errorf("Create() error = %v, want ErrCodeExists", err)
	}
}

func TestService_AwardOncePerStudent(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo())
	ach := mustCreate(t, svc, "math_star", 100)

	if _, err := svc.Award(ctx, NewAward{AchievementID: ach.ID, StudentID: "student-1", AwardedBy: "teacher-1"}); err != nil {
		t.Fatalf("Award() failed: %v", err)
	}
	if _, err := svc.Award(ctx, NewAward{AchievementID: ach.ID, StudentID: "student-1", AwardedBy: "teacher-1"}); err != ErrAlreadyAwarded {
		t.Errorf("Award() error = %v, want ErrAlreadyAwarded", err)
	}
	if _, err := svc.Award(ctx, NewAward{AchievementID: "nope", StudentID: "student-1"}); err != ErrNotFound {
		t.Errorf("Award() error = %v, want ErrNotFound", err)
	}
}

func TestService_RevokeAllowsReAward(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo())
	ach := mustCreate(t, svc, "math_star", 100)

	if _, err := svc.Award(ctx, NewAward{AchievementID: ach.ID, StudentID: "student-1"}); err != nil {
		t.Fatalf("Award() failed: %v", err)
	}
	if err := svc.Revoke(ctx, ach.ID, "student-1"); err != nil {
		t.Fatalf("Revoke() failed: %v", err)
	}
	if err := svc.Revoke(ctx, ach.ID, "student-1"); err != ErrAwardNotFound {
		t.Errorf("second Revoke() error = %v, want ErrAwardNotFound", err)
	}
	if _, err := svc.Award(ctx, NewAward{AchievementID: ach.ID, StudentID: "student-1"}); err != nil {
		t.Errorf("re-Award() after revoke failed: %v", err)
	}
}

func TestService_StudentAchievements(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo())
	star := mustCreate(t, svc, "math_star", 100)
	helper := mustCreate(t, svc, "class_helper", 25)

	for _, ach := range []Achievement{star, helper} {
		if _, err := svc.Award(ctx, NewAward{AchievementID: ach.ID, StudentID: "student-1"}); err != nil {
			t.Fatalf("Award() failed: %v", err)
		}
	}

	got, err := svc.StudentAchievements(ctx, "student-1")
	if err != nil {
		t.Fatalf("StudentAchievements() failed: %v", err)
	}
	if len(got.Awards) != 2 {
		t.Fatalf("awards = %d, want 2", len(got.Awards))
	}
	if got.TotalPoints != 125 {
		t.Errorf("total points = %d, want 125", got.TotalPoints)
	}
}

func TestService_Leaderboard(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo())
	star := mustCreate(t, svc, "math_star", 100)
	helper := mustCreate(t, svc, "class_helper", 25)

	awards := []NewAward{
		{AchievementID: star.ID, StudentID: "amina"},
		{AchievementID: helper.ID, StudentID: "amina"},
		{AchievementID: star.ID, StudentID: "baraka"},
		{AchievementID: star.ID, StudentID: "chiku"},
	}
	for _, na := range awards {
		if _, err := svc.Award(ctx, na); err != nil {
			t.Fatalf("Award() failed: %v", err)
		}
	}

	board, err := svc.Leaderboard(ctx, 0)
	if err != nil {
		t.Fatalf("Leaderboard() failed: %v", err)
	}
	want := []LeaderboardEntry{
		{StudentID: "amina", Points: 125, Rank: 1},
		{StudentID: "baraka", Points: 100, Rank: 2},
		{StudentID: "chiku", Points: 100, Rank: 2},
	}
	if len(board) != len(want) {
		t.Fatalf("board len = %d, want %d", len(board), len(want))
	}
	for i, w := range want {
		if board[i] != w {
			t.Errorf("board[%d] = %+v, want %+v", i, board[i], w)
		}
	}
}
