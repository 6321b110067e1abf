package models

import (
	"fmt"
	"time"

	"github.com/gocql/gocql"
)

// Message - сообщение в диалоге. Строки immutable и append-only:
// партиция conversation_id, кластеризация created_at DESC / message_id ASC
// (message_id случайный, tie-break для одинаковых таймстемпов)
type Message struct {
	ID             gocql.UUID `json:"id" cql:"message_id"`
	ConversationID int64      `json:"conversation_id" cql:"conversation_id"`
	SenderID       int64      `json:"sender_id" cql:"sender_id"`
	ReceiverID     int64      `json:"receiver_id" cql:"receiver_id"`
	Content        string     `json:"content" cql:"content"`
	CreatedAt      time.Time  `json:"created_at" cql:"created_at"`
}

// MessageFromRow собирает Message из строки таблицы messages
func MessageFromRow(row map[string]interface{}) (*Message, error) {
	msg := &Message{}
	var ok bool
	if msg.ConversationID, ok = row["conversation_id"].(int64); !ok {
		return nil, fmt.Errorf("messages row: missing or invalid conversation_id: %v", row["conversation_id"])
	}
	if msg.ID, ok = row["message_id"].(gocql.UUID); !ok {
		return nil, fmt.Errorf("messages row in conversation %d: missing or invalid message_id", msg.ConversationID)
	}
	if msg.CreatedAt, ok = row["created_at"].(time.Time); !ok {
		return nil, fmt.Errorf("messages row %s: missing or invalid created_at", msg.ID)
	}
	if msg.SenderID, ok = row["sender_id"].(int64); !ok {
		return nil, fmt.Errorf("messages row %s: missing or invalid sender_id", msg.ID)
	}
	if msg.ReceiverID, ok = row["receiver_id"].(int64); !ok {
		return nil, fmt.Errorf("messages row %s: missing or invalid receiver_id", msg.ID)
	}
	if msg.Content, ok = row["content"].(string); !ok {
		return nil, fmt.Errorf("messages row %s: missing or invalid content", msg.ID)
	}
	return msg, nil
}
