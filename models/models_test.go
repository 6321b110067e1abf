package models

import (
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
)

func TestMessageFromRow(t *testing.T) {
	messageID, err := gocql.RandomUUID()
	assert.NoError(t, err)
	createdAt := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	msg, err := MessageFromRow(map[string]interface{}{
		"conversation_id": int64(42),
		"created_at":      createdAt,
		"message_id":      messageID,
		"sender_id":       int64(1),
		"receiver_id":     int64(2),
		"content":         "hello",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(42), msg.ConversationID)
	assert.Equal(t, messageID, msg.ID)
	assert.Equal(t, createdAt, msg.CreatedAt)
	assert.Equal(t, "hello", msg.Content)
}

func TestMessageFromRowMalformed(t *testing.T) {
	// Отсутствует message_id
	_, err := MessageFromRow(map[string]interface{}{
		"conversation_id": int64(42),
		"created_at":      time.Now(),
		"sender_id":       int64(1),
		"receiver_id":     int64(2),
		"content":         "hello",
	})
	assert.Error(t, err)

	// conversation_id не того типа
	_, err = MessageFromRow(map[string]interface{}{
		"conversation_id": "42",
	})
	assert.Error(t, err)
}

func TestConversationFromRow(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	conv, err := ConversationFromRow(map[string]interface{}{
		"conversation_id":      int64(42),
		"user1_id":             int64(1),
		"user2_id":             int64(2),
		"last_message_at":      at,
		"last_message_content": "hello",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(42), conv.ID)
	assert.Equal(t, "hello", conv.LastMessageContent)

	// Свежесозданный диалог: summary-полей еще нет
	conv, err = ConversationFromRow(map[string]interface{}{
		"conversation_id": int64(43),
		"user1_id":        int64(1),
		"user2_id":        int64(2),
	})
	assert.NoError(t, err)
	assert.True(t, conv.LastMessageAt.IsZero())
	assert.Empty(t, conv.LastMessageContent)

	_, err = ConversationFromRow(map[string]interface{}{
		"conversation_id": int64(44),
	})
	assert.Error(t, err)
}

func TestUserConversationFromRow(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	uc, err := UserConversationFromRow(map[string]interface{}{
		"user_id":              int64(1),
		"conversation_id":      int64(42),
		"other_user_id":        int64(2),
		"last_message_at":      at,
		"last_message_content": "hello",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), uc.OtherUserID)

	// last_message_at входит в ключ кластеризации и обязан присутствовать
	_, err = UserConversationFromRow(map[string]interface{}{
		"user_id":         int64(1),
		"conversation_id": int64(42),
		"other_user_id":   int64(2),
	})
	assert.Error(t, err)
}
