package messaging

import (
	"time"

	"github.com/trezcool/shule/core"
)

type (
	Message struct {
		ID       string    `json:"id"`
		SenderID string    `json:"sender_id"`
		Subject  string    `json:"subject"`
		Body     string    `json:"body"`
		SentAt   time.Time `json:"sent_at"` // UTC
	}

	// Recipient is the per-user delivery row; ReadAt is nil until the
	// recipient opens the message.
	Recipient struct {
		MessageID string     `json:"message_id"`
		UserID    string     `json:"user_id"`
		ReadAt    *time.Time `json:"read_at,omitempty"`
	}

	InboxItem struct {
		Message Message    `json:"message"`
		ReadAt  *time.Time `json:"read_at,omitempty"`
	}
)

func (item InboxItem) Read() bool { return item.ReadAt != nil }

// NewMessage addresses either explicit user IDs or a whole class roster;
// at least one of the two must be set.
type NewMessage struct {
	Subject string   `json:"subject" validate:"required,max=255"`
	Body    string   `json:"body" validate:"required"`
	To      []string `json:"to"`
	ClassID string   `json:"class_id"`
}

func (nm *NewMessage) Validate() error {
	nm.Subject = core.CleanString(nm.Subject)
	nm.ClassID = core.CleanString(nm.ClassID)
	if err := core.Validate.Struct(nm); err != nil {
		return err
	}
	if len(nm.To) == 0 && nm.ClassID == "" {
		return core.NewValidationError(
			errInvalidMessage,
			core.FieldError{Field: "to", Error: "either to or class_id is required"},
		)
	}
	return nil
}
