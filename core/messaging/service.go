package messaging

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	ErrNotFound       = errors.New("message not found")
	ErrNoRecipients   = errors.New("message has no recipients")
	errInvalidMessage = errors.New("invalid message")
)

type (
	Repository interface {
		CreateMessage(ctx context.Context, msg Message, recipients []Recipient) (Message, error)
		GetMessage(ctx context.Context, id string) (Message, error)
		// GetRecipient returns the delivery row for (message, user).
		GetRecipient(ctx context.Context, messageID, userID string) (Recipient, error)
		UpdateRecipient(ctx context.Context, rcp Recipient) (Recipient, error)
		QueryInbox(ctx context.Context, userID string) ([]InboxItem, error)
		QuerySent(ctx context.Context, senderID string) ([]Message, error)
	}

	ServiceInterface interface {
		Send(ctx context.Context, sender user.User, nm NewMessage, recipients []user.User) (Message, error)
		Inbox(ctx context.Context, userID string) ([]InboxItem, error)
		MarkRead(ctx context.Context, messageID, userID string) (Recipient, error)
		Sent(ctx context.Context, senderID string) ([]Message, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, mailSvc: mailSvc}
}

// Send stores the message with one delivery row per recipient and fans it
// out by email. The sender is never a recipient of their own message and
// duplicate recipients collapse to one row.
func (svc *Service) Send(ctx context.Context, sender user.User, nm NewMessage, recipients []user.User) (Message, error) {
	seen := make(map[string]struct{}, len(recipients))
	rows := make([]Recipient, 0, len(recipients))
	emails := make([]mail.Address, 0, len(recipients))
	for _, rcp := range recipients {
		if rcp.ID == sender.ID {
			continue
		}
		if _, dup := seen[rcp.ID]; dup {
			continue
		}
		seen[rcp.ID] = struct{}{}
		rows = append(rows, Recipient{UserID: rcp.ID})
		if rcp.Email != "" {
			emails = append(emails, mail.Address{Name: rcp.Name, Address: rcp.Email})
		}
	}
	if len(rows) == 0 {
		return Message{}, ErrNoRecipients
	}

	msg := Message{
		SenderID: sender.ID,
		Subject:  nm.Subject,
		Body:     nm.Body,
		SentAt:   time.Now().UTC(),
	}
	msg, err := svc.repo.CreateMessage(ctx, msg, rows)
	if err != nil {
		return Message{}, errors.Wrap(err, "creating message")
	}

	if len(emails) > 0 {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           emails,
			Subject:      msg.Subject,
			TemplateName: "new-message",
			TemplateData: struct {
				SenderName string
				Subject    string
				Body       string
			}{sender.Name, msg.Subject, msg.Body},
		})
	}
	return msg, nil
}

func (svc *Service) Inbox(ctx context.Context, userID string) ([]InboxItem, error) {
	return svc.repo.QueryInbox(ctx, userID)
}

// MarkRead stamps the recipient row; marking twice keeps the first stamp.
func (svc *Service) MarkRead(ctx context.Context, messageID, userID string) (Recipient, error) {
	rcp, err := svc.repo.GetRecipient(ctx, messageID, userID)
	if err != nil {
		return Recipient{}, err
	}
	if rcp.ReadAt != nil {
		return rcp, nil
	}

	now := time.Now().UTC()
	rcp.ReadAt = &now
	rcp, err = svc.repo.UpdateRecipient(ctx, rcp)
	return rcp, errors.Wrap(err, "updating recipient")
}

func (svc *Service) Sent(ctx context.Context, senderID string) ([]Message, error) {
	return svc.repo.QuerySent(ctx, senderID)
}
