package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/shule/core/messaging"
	"github.com/trezcool/shule/core/user"
)

func Test_messagingApi_sendAndInbox(t *testing.T) {
	env := setup(t)

	teacher := createUser(t, env.usrRepo, "Teacher", "teacher1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	amina := createUser(t, env.usrRepo, "Amina", "aminak", "amina@test.cd", "", []string{user.RoleStudent}, true)
	baraka := createUser(t, env.usrRepo, "Baraka", "barakam", "baraka@test.cd", "", []string{user.RoleStudent}, true)

	teacherToken := getToken(t, teacher)
	aminaToken := getToken(t, amina)

	// neither to nor class_id
	body := marchallObj(t, messaging.NewMessage{Subject: "Homework", Body: "Page 12."})
	req, rec := newAuthRequest(http.MethodPost, "/v1/messages", teacherToken, body)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"to": "either to or class_id is required"}),
	}, rec)

	// unknown recipient
	body = marchallObj(t, messaging.NewMessage{Subject: "Homework", Body: "Page 12.", To: []string{"deadbeef"}})
	req, rec = newAuthRequest(http.MethodPost, "/v1/messages", teacherToken, body)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"to": "unknown recipient: deadbeef"}),
	}, rec)

	// duplicates collapse, sender is excluded
	body = marchallObj(t, messaging.NewMessage{
		Subject: "Homework",
		Body:    "Page 12, exercises 1-4.",
		To:      []string{amina.ID, amina.ID, baraka.ID, teacher.ID},
	})
	req, rec = newAuthRequest(http.MethodPost, "/v1/messages", teacherToken, body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("send failed! code = %v; body = %v", rec.Code, rec.Body.String())
	}
	var msg messaging.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("unmarshalling Message: %v", err)
	}

	// recipient inbox
	req, rec = newAuthRequest(http.MethodGet, "/v1/messages/inbox", aminaToken)
	env.app.ServeHTTP(rec, req)
	var inbox []messaging.InboxItem
	if err := json.Unmarshal(rec.Body.Bytes(), &inbox); err != nil {
		t.Fatalf("unmarshalling inbox: %v", err)
	}
	if len(inbox) != 1 || inbox[0].Message.ID != msg.ID || inbox[0].Read() {
		t.Errorf("unexpected inbox: %+v", inbox)
	}

	// sender sees it in sent, not in inbox
	req, rec = newAuthRequest(http.MethodGet, "/v1/messages/inbox", teacherToken)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)

	req, rec = newAuthRequest(http.MethodGet, "/v1/messages/sent", teacherToken)
	env.app.ServeHTTP(rec, req)
	var sent []messaging.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &sent); err != nil {
		t.Fatalf("unmarshalling sent: %v", err)
	}
	if len(sent) != 1 || sent[0].ID != msg.ID {
		t.Errorf("unexpected sent box: %+v", sent)
	}

	// mark read; second call keeps the first stamp
	req, rec = newAuthRequest(http.MethodPost, "/v1/messages/"+msg.ID+"/read", aminaToken)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("markRead failed! code = %v; body = %v", rec.Code, rec.Body.String())
	}
	var rcp messaging.Recipient
	if err := json.Unmarshal(rec.Body.Bytes(), &rcp); err != nil {
		t.Fatalf("unmarshalling Recipient: %v", err)
	}
	if rcp.ReadAt == nil {
		t.Fatal("ReadAt not set")
	}
	first := *rcp.ReadAt

	req, rec = newAuthRequest(http.MethodPost, "/v1/messages/"+msg.ID+"/read", aminaToken)
	env.app.ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &rcp); err != nil {
		t.Fatalf("unmarshalling Recipient: %v", err)
	}
	if rcp.ReadAt == nil || !rcp.ReadAt.Equal(first) {
		t.Errorf("ReadAt moved: %v -> %v", first, rcp.ReadAt)
	}

	// non-recipients cannot mark it read
	req, rec = newAuthRequest(http.MethodPost, "/v1/messages/"+msg.ID+"/read", teacherToken)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
}

func Test_messagingApi_sendToClass(t *testing.T) {
	env := setup(t)

	admin := createUser(t, env.usrRepo, "Admin", "adminuser", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := createUser(t, env.usrRepo, "Teacher", "teacher1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	amina := createUser(t, env.usrRepo, "Amina", "aminak", "amina@test.cd", "", []string{user.RoleStudent}, true)
	baraka := createUser(t, env.usrRepo, "Baraka", "barakam", "baraka@test.cd", "", []string{user.RoleStudent}, true)

	adminToken := getToken(t, admin)
	campus := createCampus(t, env, adminToken, "Main Campus")
	class := createClass(t, env, adminToken, campus.ID, "P6 A", 6)

	for _, studentID := range []string{amina.ID, baraka.ID} {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes/"+class.ID+"/enroll", adminToken, marchallObj(t, EnrollmentRequest{StudentID: studentID}))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("enroll failed: %v", rec.Body.String())
		}
	}
	// withdrawn students do not receive class messages
	req, rec := newAuthRequest(http.MethodPost, "/v1/classes/"+class.ID+"/withdraw", adminToken, marchallObj(t, EnrollmentRequest{StudentID: baraka.ID}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("withdraw failed: %v", rec.Body.String())
	}

	body := marchallObj(t, messaging.NewMessage{Subject: "Trip", Body: "Bring a hat.", ClassID: class.ID})
	req, rec = newAuthRequest(http.MethodPost, "/v1/messages", getToken(t, teacher), body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("send failed! code = %v; body = %v", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/messages/inbox", getToken(t, amina))
	env.app.ServeHTTP(rec, req)
	var inbox []messaging.InboxItem
	if err := json.Unmarshal(rec.Body.Bytes(), &inbox); err != nil {
		t.Fatalf("unmarshalling inbox: %v", err)
	}
	if len(inbox) != 1 {
		t.Errorf("amina inbox: got %d items; want 1", len(inbox))
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/messages/inbox", getToken(t, baraka))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)
}
