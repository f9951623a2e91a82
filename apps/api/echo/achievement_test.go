package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/shule/core/achievement"
	"github.com/trezcool/shule/core/user"
)

func Test_achievementApi_awardFlow(t *testing.T) {
	env := setup(t)

	admin := createUser(t, env.usrRepo, "Admin", "adminuser", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := createUser(t, env.usrRepo, "Teacher", "teacher1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	amina := createUser(t, env.usrRepo, "Amina", "aminak", "amina@test.cd", "", []string{user.RoleStudent}, true)
	baraka := createUser(t, env.usrRepo, "Baraka", "barakam", "baraka@test.cd", "", []string{user.RoleStudent}, true)

	adminToken := getToken(t, admin)
	teacherToken := getToken(t, teacher)

	// only admins define achievements
	body := marchallObj(t, achievement.NewAchievement{Code: "perfect_attendance", Name: "Perfect Attendance", Points: 50})
	req, rec := newAuthRequest(http.MethodPost, "/v1/achievements", teacherToken, body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("teacher create: code = %v; want %v", rec.Code, http.StatusForbidden)
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/achievements", adminToken, body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed! code = %v; body = %v", rec.Code, rec.Body.String())
	}
	var ach achievement.Achievement
	if err := json.Unmarshal(rec.Body.Bytes(), &ach); err != nil {
		t.Fatalf("unmarshalling Achievement: %v", err)
	}

	// duplicate code
	req, rec = newAuthRequest(http.MethodPost, "/v1/achievements", adminToken, body)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"code": achievement.ErrCodeExists.Error()}),
	}, rec)

	// teachers may award
	awardBody := marchallObj(t, achievement.NewAward{AchievementID: ach.ID, StudentID: amina.ID})
	req, rec = newAuthRequest(http.MethodPost, "/v1/achievements/awards", teacherToken, awardBody)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("award failed! code = %v; body = %v", rec.Code, rec.Body.String())
	}
	var awd achievement.Award
	if err := json.Unmarshal(rec.Body.Bytes(), &awd); err != nil {
		t.Fatalf("unmarshalling Award: %v", err)
	}
	if awd.AwardedBy != teacher.ID {
		t.Errorf("AwardedBy = %v; want %v", awd.AwardedBy, teacher.ID)
	}

	// once per student
	req, rec = newAuthRequest(http.MethodPost, "/v1/achievements/awards", teacherToken, awardBody)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, httpErr{Error: achievement.ErrAlreadyAwarded.Error()}),
	}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/achievements/awards", teacherToken, marchallObj(t, achievement.NewAward{AchievementID: ach.ID, StudentID: baraka.ID}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("award failed! code = %v; body = %v", rec.Code, rec.Body.String())
	}

	// student sees their own collection
	req, rec = newAuthRequest(http.MethodGet, "/v1/students/"+amina.ID+"/achievements", getToken(t, amina))
	env.app.ServeHTTP(rec, req)
	var coll achievement.StudentAchievements
	if err := json.Unmarshal(rec.Body.Bytes(), &coll); err != nil {
		t.Fatalf("unmarshalling StudentAchievements: %v", err)
	}
	if coll.TotalPoints != 50 || len(coll.Awards) != 1 {
		t.Errorf("unexpected collection: %+v", coll)
	}

	// but not a peer's
	req, rec = newAuthRequest(http.MethodGet, "/v1/students/"+baraka.ID+"/achievements", getToken(t, amina))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)

	// revoke then re-award
	req, rec = newAuthRequest(http.MethodDelete, "/v1/achievements/awards?achievement_id="+ach.ID+"&student_id="+amina.ID, teacherToken)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("revoke failed! code = %v; body = %v", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/achievements/awards", teacherToken, awardBody)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("re-award after revoke: code = %v; want %v", rec.Code, http.StatusCreated)
	}

	// leaderboard
	req, rec = newAuthRequest(http.MethodGet, "/v1/achievements/leaderboard", getToken(t, amina))
	env.app.ServeHTTP(rec, req)
	var board []achievement.LeaderboardEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &board); err != nil {
		t.Fatalf("unmarshalling leaderboard: %v", err)
	}
	if len(board) != 2 || board[0].Rank != 1 || board[1].Rank != 1 {
		t.Errorf("unexpected leaderboard: %+v", board)
	}
}
