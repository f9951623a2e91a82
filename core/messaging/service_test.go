package messaging

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

type fakeMailSvc struct {
	sent []*core.EmailMessage
}

func (s *fakeMailSvc) SendMessages(messages ...*core.EmailMessage) {
	s.sent = append(s.sent, messages...)
}

type fakeRepo struct {
	messages   map[string]Message
	recipients map[string]Recipient // key: messageID|userID
	seq        int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{messages: make(map[string]Message), recipients: make(map[string]Recipient)}
}

func (r *fakeRepo) CreateMessage(_ context.Context, msg Message, recipients []Recipient) (Message, error) {
	r.seq++
	msg.ID = strconv.Itoa(r.seq)
	r.messages[msg.ID] = msg
	for _, rcp := range recipients {
		rcp.MessageID = msg.ID
		r.recipients[msg.ID+"|"+rcp.UserID] = rcp
	}
	return msg, nil
}

func (r *fakeRepo) GetMessage(_ context.Context, id string) (Message, error) {
	msg, ok := r.messages[id]
	if !ok {
		return Message{}, ErrNotFound
	}
	return msg, nil
}

func (r *fakeRepo) GetRecipient(_ context.Context, messageID, userID string) (Recipient, error) {
	rcp, ok := r.recipients[messageID+"|"+userID]
	if !ok {
		return Recipient{}, ErrNotFound
	}
	return rcp, nil
}

func (r *fakeRepo) UpdateRecipient(_ context.Context, rcp Recipient) (Recipient, error) {
	r.recipients[rcp.MessageID+"|"+rcp.UserID] = rcp
	return rcp, nil
}

func (r *fakeRepo) QueryInbox(_ context.Context, userID string) ([]InboxItem, error) {
	var out []InboxItem
	for _, rcp := range r.recipients {
		if rcp.UserID == userID {
			out = append(out, InboxItem{Message: r.messages[rcp.MessageID], ReadAt: rcp.ReadAt})
		}
	}
	return out, nil
}

func (r *fakeRepo) QuerySent(_ context.Context, senderID string) ([]Message, error) {
	var out []Message
	for _, msg := range r.messages {
		if msg.SenderID == senderID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func testUser(id, name, email string) user.User {
	return user.User{ID: id, Name: name, Email: email}
}

func TestService_Send(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	mailSvc := &fakeMailSvc{}
	svc := NewService(repo, mailSvc)

	sender := testUser("teacher-1", "Mr Juma", "juma@shule.test")
	recipients := []user.User{
		testUser("student-1", "Amina", "amina@shule.test"),
		testUser("student-1", "Amina", "amina@shule.test"), // dup collapses
		testUser("student-2", "Baraka", "baraka@shule.test"),
		sender, // never their own recipient
	}

	msg, err := svc.Send(ctx, sender, NewMessage{Subject: "Homework", Body: "Page 42."}, recipients)
	if err != nil {
		t.Fatalf("Send() failed: %v", err)
	}

	inbox, _ := svc.Inbox(ctx, "student-1")
	if len(inbox) != 1 || inbox[0].Message.ID != msg.ID || inbox[0].Read() {
		t.Errorf("student-1 inbox = %+v", inbox)
	}
	if senderInbox, _ := svc.Inbox(ctx, "teacher-1"); len(senderInbox) != 0 {
		t.Errorf("sender should not receive their own message: %+v", senderInbox)
	}
	if len(mailSvc.sent) != 1 || len(mailSvc.sent[0].To) != 2 {
		t.Errorf("email fan-out = %+v", mailSvc.sent)
	}

	sent, _ := svc.Sent(ctx, "teacher-1")
	if len(sent) != 1 {
		t.Errorf("sent box = %+v", sent)
	}
}

func TestService_Send_NoRecipients(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeMailSvc{})
	sender := testUser("teacher-1", "Mr Juma", "juma@shule.test")

	if _, err := svc.Send(context.Background(), sender, NewMessage{Subject: "s", Body: "b"}, []user.User{sender}); err != ErrNoRecipients {
		t.Errorf("Send() error = %v, want ErrNoRecipients", err)
	}
}

func TestService_MarkRead(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo(), &fakeMailSvc{})

	sender := testUser("teacher-1", "Mr Juma", "juma@shule.test")
	msg, err := svc.Send(ctx, sender, NewMessage{Subject: "s", Body: "b"},
		[]user.User{testUser("student-1", "Amina", "amina@shule.test")})
	if err != nil {
		t.Fatalf("Send() failed: %v", err)
	}

	rcp, err := svc.MarkRead(ctx, msg.ID, "student-1")
	if err != nil {
		t.Fatalf("MarkRead() failed: %v", err)
	}
	if rcp.ReadAt == nil {
		t.Fatal("ReadAt not set")
	}
	first := *rcp.ReadAt

	time.Sleep(time.Millisecond)
	again, err := svc.MarkRead(ctx, msg.ID, "student-1")
	if err != nil {
		t.Fatalf("second MarkRead() failed: %v", err)
	}
	if !again.ReadAt.Equal(first) {
		t.Errorf("MarkRead() should be idempotent: %v != %v", again.ReadAt, first)
	}

	// non-recipient cannot mark
	if _, err = svc.MarkRead(ctx, msg.ID, "student-9"); err != ErrNotFound {
		t.Errorf("MarkRead() error = %v, want ErrNotFound", err)
	}
}
