package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core/messaging"
)

type messagingRepository struct {
	db *DB
}

var _ messaging.Repository = (*messagingRepository)(nil) // interface compliance check

func NewMessagingRepository(db *DB) *messagingRepository {
	return &messagingRepository{db: db}
}

func (repo *messagingRepository) CreateMessage(_ context.Context, msg messaging.Message, recipients []messaging.Recipient) (messaging.Message, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	msg.ID = newPK()
	repo.db.messages[msg.ID] = &msg
	for _, rcp := range recipients {
		rcp.MessageID = msg.ID
		row := rcp
		repo.db.recipients[msg.ID+"|"+rcp.UserID] = &row
	}
	return msg, nil
}

func (repo *messagingRepository) GetMessage(_ context.Context, id string) (messaging.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if msg, ok := repo.db.messages[id]; ok {
		return *msg, nil
	}
	return messaging.Message{}, messaging.ErrNotFound
}

func (repo *messagingRepository) GetRecipient(_ context.Context, messageID, userID string) (messaging.Recipient, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rcp, ok := repo.db.recipients[messageID+"|"+userID]; ok {
		return *rcp, nil
	}
	return messaging.Recipient{}, messaging.ErrNotFound
}

func (repo *messagingRepository) UpdateRecipient(_ context.Context, rcp messaging.Recipient) (messaging.Recipient, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := rcp.MessageID + "|" + rcp.UserID
	if _, ok := repo.db.recipients[key]; !ok {
		return messaging.Recipient{}, messaging.ErrNotFound
	}
	repo.db.recipients[key] = &rcp
	return rcp, nil
}

func (repo *messagingRepository) QueryInbox(_ context.Context, userID string) ([]messaging.InboxItem, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var items []messaging.InboxItem
	for _, rcp := range repo.db.recipients {
		if rcp.UserID != userID {
			continue
		}
		if msg, ok := repo.db.messages[rcp.MessageID]; ok {
			items = append(items, messaging.InboxItem{Message: *msg, ReadAt: rcp.ReadAt})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Message.SentAt.After(items[j].Message.SentAt) })
	return items, nil
}

func (repo *messagingRepository) QuerySent(_ context.Context, senderID string) ([]messaging.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var messages []messaging.Message
	for _, msg := range repo.db.messages {
		if msg.SenderID == senderID {
			messages = append(messages, *msg)
		}
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].SentAt.After(messages[j].SentAt) })
	return messages, nil
}
