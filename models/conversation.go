package models

import (
	"fmt"
	"time"
)

// Conversation - диалог двух пользователей. Единственный источник правды
// о паре участников; summary-поля обновляются при каждом сообщении
type Conversation struct {
	ID                 int64     `json:"id" cql:"conversation_id"`
	User1ID            int64     `json:"user1_id" cql:"user1_id"`
	User2ID            int64     `json:"user2_id" cql:"user2_id"`
	LastMessageAt      time.Time `json:"last_message_at" cql:"last_message_at"`
	LastMessageContent string    `json:"last_message_content" cql:"last_message_content"`
}

// UserConversation - денормализованная проекция диалога на одного участника.
// Партиция user_id, кластеризация last_message_at DESC / conversation_id ASC,
// то есть список диалогов пользователя читается по свежести без индексов
type UserConversation struct {
	UserID             int64     `json:"user_id" cql:"user_id"`
	ConversationID     int64     `json:"conversation_id" cql:"conversation_id"`
	OtherUserID        int64     `json:"other_user_id" cql:"other_user_id"`
	LastMessageAt      time.Time `json:"last_message_at" cql:"last_message_at"`
	LastMessageContent string    `json:"last_message_content" cql:"last_message_content"`
}

// ConversationFromRow собирает Conversation из строки хранилища.
// Ошибка формы строки изолируется на уровне строки: вызывающий пропускает
// битую строку, а не роняет всю страницу
func ConversationFromRow(row map[string]interface{}) (*Conversation, error) {
	conv := &Conversation{}
	var ok bool
	if conv.ID, ok = row["conversation_id"].(int64); !ok {
		return nil, fmt.Errorf("conversations row: missing or invalid conversation_id: %v", row["conversation_id"])
	}
	if conv.User1ID, ok = row["user1_id"].(int64); !ok {
		return nil, fmt.Errorf("conversations row %d: missing or invalid user1_id", conv.ID)
	}
	if conv.User2ID, ok = row["user2_id"].(int64); !ok {
		return nil, fmt.Errorf("conversations row %d: missing or invalid user2_id", conv.ID)
	}
	// Summary-поля пустые у только что созданного диалога
	conv.LastMessageAt, _ = row["last_message_at"].(time.Time)
	conv.LastMessageContent, _ = row["last_message_content"].(string)
	return conv, nil
}

// UserConversationFromRow собирает UserConversation из строки user_conversations
func UserConversationFromRow(row map[string]interface{}) (*UserConversation, error) {
	uc := &UserConversation{}
	var ok bool
	if uc.UserID, ok = row["user_id"].(int64); !ok {
		return nil, fmt.Errorf("user_conversations row: missing or invalid user_id: %v", row["user_id"])
	}
	if uc.ConversationID, ok = row["conversation_id"].(int64); !ok {
		return nil, fmt.Errorf("user_conversations row for user %d: missing or invalid conversation_id", uc.UserID)
	}
	if uc.OtherUserID, ok = row["other_user_id"].(int64); !ok {
		return nil, fmt.Errorf("user_conversations row for user %d: missing or invalid other_user_id", uc.UserID)
	}
	if uc.LastMessageAt, ok = row["last_message_at"].(time.Time); !ok {
		return nil, fmt.Errorf("user_conversations row for user %d: missing or invalid last_message_at", uc.UserID)
	}
	uc.LastMessageContent, _ = row["last_message_content"].(string)
	return uc, nil
}
