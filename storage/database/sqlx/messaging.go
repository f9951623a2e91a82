package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/messaging"
)

type messageRow struct {
	ID       string    `db:"id"`
	SenderID string    `db:"sender_id"`
	Subject  string    `db:"subject"`
	Body     string    `db:"body"`
	SentAt   time.Time `db:"sent_at"`
}

func (r messageRow) toMessage() messaging.Message {
	return messaging.Message{
		ID:       r.ID,
		SenderID: r.SenderID,
		Subject:  r.Subject,
		Body:     r.Body,
		SentAt:   r.SentAt,
	}
}

type recipientRow struct {
	MessageID string    `db:"message_id"`
	UserID    string    `db:"user_id"`
	ReadAt    null.Time `db:"read_at"`
}

func (r recipientRow) toRecipient() messaging.Recipient {
	rcp := messaging.Recipient{MessageID: r.MessageID, UserID: r.UserID}
	if r.ReadAt.Valid {
		t := r.ReadAt.Time
		rcp.ReadAt = &t
	}
	return rcp
}

type inboxRow struct {
	messageRow
	ReadAt null.Time `db:"read_at"`
}

type messagingRepository struct {
	db core.DB
}

var _ messaging.Repository = (*messagingRepository)(nil) // interface compliance check

func NewMessagingRepository(db core.DB) *messagingRepository {
	return &messagingRepository{db: db}
}

// CreateMessage inserts the message and its recipient rows in one transaction.
func (repo messagingRepository) CreateMessage(ctx context.Context, msg messaging.Message, recipients []messaging.Recipient) (messaging.Message, error) {
	msg.ID = uuid.New().String()
	row := messageRow{
		ID:       msg.ID,
		SenderID: msg.SenderID,
		Subject:  msg.Subject,
		Body:     msg.Body,
		SentAt:   msg.SentAt.UTC(),
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return messaging.Message{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.NamedExecContext(ctx, `
		INSERT INTO message (id, sender_id, subject, body, sent_at)
		VALUES (:id, :sender_id, :subject, :body, :sent_at)`,
		row,
	); err != nil {
		return messaging.Message{}, errors.Wrap(err, "inserting message")
	}

	rcpRows := make([]recipientRow, 0, len(recipients))
	for _, rcp := range recipients {
		rcpRows = append(rcpRows, recipientRow{MessageID: msg.ID, UserID: rcp.UserID})
	}
	if _, err = tx.NamedExecContext(ctx, `
		INSERT INTO message_recipient (message_id, user_id, read_at)
		VALUES (:message_id, :user_id, :read_at)`,
		rcpRows,
	); err != nil {
		return messaging.Message{}, errors.Wrap(err, "inserting recipients")
	}

	if err = tx.Commit(); err != nil {
		return messaging.Message{}, errors.Wrap(err, "committing transaction")
	}
	return row.toMessage(), nil
}

func (repo messagingRepository) GetMessage(ctx context.Context, id string) (messaging.Message, error) {
	if _, err := uuid.Parse(id); err != nil {
		return messaging.Message{}, messaging.ErrNotFound
	}
	var row messageRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM message WHERE id = $1`, id); err != nil {
		return messaging.Message{}, trapNoRowsErr(err, messaging.ErrNotFound, "finding message")
	}
	return row.toMessage(), nil
}

func (repo messagingRepository) GetRecipient(ctx context.Context, messageID, userID string) (messaging.Recipient, error) {
	var row recipientRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM message_recipient WHERE message_id = $1 AND user_id = $2`, messageID, userID)
	if err != nil {
		return messaging.Recipient{}, trapNoRowsErr(err, messaging.ErrNotFound, "finding recipient")
	}
	return row.toRecipient(), nil
}

func (repo messagingRepository) UpdateRecipient(ctx context.Context, rcp messaging.Recipient) (messaging.Recipient, error) {
	row := recipientRow{MessageID: rcp.MessageID, UserID: rcp.UserID}
	if rcp.ReadAt != nil {
		row.ReadAt = null.TimeFrom(rcp.ReadAt.UTC())
	}
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE message_recipient SET read_at = :read_at
		WHERE message_id = :message_id AND user_id = :user_id`,
		row,
	)
	if err != nil {
		return messaging.Recipient{}, errors.Wrap(err, "updating recipient")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return messaging.Recipient{}, messaging.ErrNotFound
	}
	return row.toRecipient(), nil
}

func (repo messagingRepository) QueryInbox(ctx context.Context, userID string) ([]messaging.InboxItem, error) {
	var rows []inboxRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT m.*, r.read_at FROM message m
		JOIN message_recipient r ON r.message_id = m.id
		WHERE r.user_id = $1
		ORDER BY m.sent_at DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying inbox")
	}

	items := make([]messaging.InboxItem, 0, len(rows))
	for _, row := range rows {
		item := messaging.InboxItem{Message: row.toMessage()}
		if row.ReadAt.Valid {
			t := row.ReadAt.Time
			item.ReadAt = &t
		}
		items = append(items, item)
	}
	return items, nil
}

func (repo messagingRepository) QuerySent(ctx context.Context, senderID string) ([]messaging.Message, error) {
	var rows []messageRow
	if err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM message WHERE sender_id = $1 ORDER BY sent_at DESC`, senderID); err != nil {
		return nil, errors.Wrap(err, "querying sent messages")
	}
	messages := make([]messaging.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, row.toMessage())
	}
	return messages, nil
}
