package echoapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

func Test_schoolApi_campusLifecycle(t *testing.T) {
	env := setup(t)

	admin := createUser(t, env.usrRepo, "Admin", "adminuser", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	student := createUser(t, env.usrRepo, "Student", "student1", "student@test.cd", "", []string{user.RoleStudent}, true)
	adminToken := getToken(t, admin)

	// students cannot create campuses
	body := marchallObj(t, school.NewCampus{Name: "Main Campus"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/campuses", getToken(t, student), body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("student create: code = %v; want %v", rec.Code, http.StatusForbidden)
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/campuses", adminToken, body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed! code = %v; body = %v", rec.Code, rec.Body.String())
	}
	var campus school.Campus
	if err := json.Unmarshal(rec.Body.Bytes(), &campus); err != nil {
		t.Fatalf("unmarshalling Campus: %v", err)
	}

	// partial update keeps unset fields
	body = marchallObj(t, school.UpdateCampus{Phone: "+243 999 000 111"})
	req, rec = newAuthRequest(http.MethodPut, "/v1/campuses/"+campus.ID, adminToken, body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update failed! code = %v; body = %v", rec.Code, rec.Body.String())
	}
	var updated school.Campus
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshalling Campus: %v", err)
	}
	if updated.Name != "Main Campus" || updated.Phone != "+243 999 000 111" {
		t.Errorf("unexpected campus: %+v", updated)
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/campuses/deadbeef", adminToken)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
}

func Test_schoolApi_enrollment(t *testing.T) {
	env := setup(t)

	admin := createUser(t, env.usrRepo, "Admin", "adminuser", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := createUser(t, env.usrRepo, "Teacher", "teacher1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	amina := createUser(t, env.usrRepo, "Amina", "aminak", "amina@test.cd", "", []string{user.RoleStudent}, true)
	baraka := createUser(t, env.usrRepo, "Baraka", "barakam", "baraka@test.cd", "", []string{user.RoleStudent}, true)
	adminToken := getToken(t, admin)

	campus := createCampus(t, env, adminToken, "Main Campus")
	class := createClass(t, env, adminToken, campus.ID, "P6 A", 6)

	enroll := func(studentID string) *http.Request {
		req, _ := newAuthRequest(http.MethodPost, "/v1/classes/"+class.ID+"/enroll", adminToken, marchallObj(t, EnrollmentRequest{StudentID: studentID}))
		return req
	}

	req, rec := newAuthRequest(http.MethodPost, "/v1/classes/"+class.ID+"/enroll", adminToken, marchallObj(t, EnrollmentRequest{StudentID: amina.ID}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("enroll failed! code = %v; body = %v", rec.Code, rec.Body.String())
	}

	// enrolling twice is rejected
	rec = newRecorderFor(env, enroll(amina.ID))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, httpErr{Error: school.ErrAlreadyEnrolled.Error()}),
	}, rec)

	rec = newRecorderFor(env, enroll(baraka.ID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("enroll failed! code = %v; body = %v", rec.Code, rec.Body.String())
	}

	// withdraw keeps the row out of the default roster
	req, rec = newAuthRequest(http.MethodPost, "/v1/classes/"+class.ID+"/withdraw", adminToken, marchallObj(t, EnrollmentRequest{StudentID: baraka.ID}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("withdraw failed! code = %v; body = %v", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/classes/"+class.ID+"/roster", getToken(t, teacher))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("roster failed! code = %v; body = %v", rec.Code, rec.Body.String())
	}
	var roster []school.Enrollment
	if err := json.Unmarshal(rec.Body.Bytes(), &roster); err != nil {
		t.Fatalf("unmarshalling roster: %v", err)
	}
	if len(roster) != 1 || roster[0].StudentID != amina.ID {
		t.Errorf("unexpected roster: %+v", roster)
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/classes/"+class.ID+"/roster?include_withdrawn=true", getToken(t, teacher))
	env.app.ServeHTTP(rec, req)
	roster = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &roster); err != nil {
		t.Fatalf("unmarshalling roster: %v", err)
	}
	if len(roster) != 2 {
		t.Errorf("withdrawn row should survive; got %+v", roster)
	}

	// students only see their own enrollments
	req, rec = newAuthRequest(http.MethodGet, "/v1/students/"+amina.ID+"/enrollments", getToken(t, baraka))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)

	req, rec = newAuthRequest(http.MethodGet, "/v1/students/"+amina.ID+"/enrollments", getToken(t, amina))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("own enrollments: code = %v; body = %v", rec.Code, rec.Body.String())
	}
}

// helpers

func createCampus(t *testing.T, env *testEnv, token, name string) school.Campus {
	t.Helper()

	req, rec := newAuthRequest(http.MethodPost, "/v1/campuses", token, marchallObj(t, school.NewCampus{Name: name}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("createCampus() failed: %v", rec.Body.String())
	}
	var campus school.Campus
	if err := json.Unmarshal(rec.Body.Bytes(), &campus); err != nil {
		t.Fatalf("createCampus() failed: %v", err)
	}
	return campus
}

func createClass(t *testing.T, env *testEnv, token, campusID, name string, grade int) school.Class {
	t.Helper()

	body := marchallObj(t, school.NewClass{CampusID: campusID, Name: name, GradeLevel: grade, AcademicYear: "2026-2027"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/classes", token, body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("createClass() failed: %v", rec.Body.String())
	}
	var class school.Class
	if err := json.Unmarshal(rec.Body.Bytes(), &class); err != nil {
		t.Fatalf("createClass() failed: %v", err)
	}
	return class
}

func newRecorderFor(env *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.app.ServeHTTP(rec, req)
	return rec
}
