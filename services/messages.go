package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"messenger/db"
	"messenger/models"

	"github.com/gocql/gocql"
)

const (
	insertMessageStmt = `INSERT INTO messages (conversation_id, created_at, message_id, sender_id, receiver_id, content) VALUES (?, ?, ?, ?, ?, ?)`

	selectMessagesStmt       = `SELECT conversation_id, created_at, message_id, sender_id, receiver_id, content FROM messages WHERE conversation_id = ? ORDER BY created_at DESC, message_id ASC LIMIT ?`
	selectMessagesBeforeStmt = `SELECT conversation_id, created_at, message_id, sender_id, receiver_id, content FROM messages WHERE conversation_id = ? AND created_at < ? ORDER BY created_at DESC, message_id ASC LIMIT ?`

	updateConversationSummaryStmt = `UPDATE conversations SET last_message_at = ?, last_message_content = ? WHERE conversation_id = ?`

	insertUserConversationStmt = `INSERT INTO user_conversations (user_id, conversation_id, other_user_id, last_message_at, last_message_content) VALUES (?, ?, ?, ?, ?)`
	deleteUserConversationStmt = `DELETE FROM user_conversations WHERE user_id = ? AND last_message_at = ? AND conversation_id = ?`
)

// MessageService пишет сообщения и разносит summary по денормализованным
// таблицам. Шаги записи не атомарны между таблицами: читатель может успеть
// увидеть новое сообщение до обновления summary. Это принятое окно
// eventual consistency - summary-поля производные и идемпотентно перезаписываемы
type MessageService struct {
	store         db.Store
	conversations *ConversationService
}

func NewMessageService(store db.Store, conversations *ConversationService) *MessageService {
	return &MessageService{store: store, conversations: conversations}
}

// SendMessage добавляет сообщение в диалог отправителя и получателя,
// создавая диалог при первом контакте, и обновляет summary в conversations
// и обеих строках user_conversations. При частичном сбое оставшиеся шаги
// не выполняются и компенсации нет: осиротевших сообщений не бывает,
// потому что диалог резолвится первым
func (ms *MessageService) SendMessage(ctx context.Context, senderID, receiverID int64, content string) (*models.Message, error) {
	convID, err := ms.conversations.GetOrCreateConversation(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}

	// Прошлый last_message_at нужен, чтобы убрать устаревшую clustering-строку
	// из user_conversations: timestamp входит в ключ, слепая вставка оставила бы
	// у пары больше двух строк проекции
	prevRow, err := ms.store.SelectOne(ctx, selectConversationStmt, convID)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation %d before send: %w", convID, err)
	}
	var prevLastAt time.Time
	if prevRow != nil {
		prevLastAt, _ = prevRow["last_message_at"].(time.Time)
	}

	messageID, err := gocql.RandomUUID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}
	// Cassandra хранит timestamp с миллисекундной точностью
	now := time.Now().UTC().Truncate(time.Millisecond)

	if err := ms.store.Exec(ctx, insertMessageStmt, convID, now, messageID, senderID, receiverID, content); err != nil {
		return nil, fmt.Errorf("failed to insert message into conversation %d: %w", convID, err)
	}

	if err := ms.store.Exec(ctx, updateConversationSummaryStmt, now, content, convID); err != nil {
		return nil, fmt.Errorf("failed to update summary of conversation %d: %w", convID, err)
	}

	for _, pair := range [][2]int64{{senderID, receiverID}, {receiverID, senderID}} {
		userID, otherID := pair[0], pair[1]
		if !prevLastAt.IsZero() && !prevLastAt.Equal(now) {
			if err := ms.store.Exec(ctx, deleteUserConversationStmt, userID, prevLastAt, convID); err != nil {
				return nil, fmt.Errorf("failed to drop stale view row of conversation %d for user %d: %w", convID, userID, err)
			}
		}
		if err := ms.store.Exec(ctx, insertUserConversationStmt, userID, convID, otherID, now, content); err != nil {
			return nil, fmt.Errorf("failed to upsert view row of conversation %d for user %d: %w", convID, userID, err)
		}
	}

	msg := &models.Message{
		ID:             messageID,
		ConversationID: convID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		CreatedAt:      now,
	}

	// Доставка онлайн-получателю. Сбой доставки не влияет на результат записи
	if err := PublishMessageEvent(ctx, MessageEventFrom(msg)); err != nil && GlobalWSConnManager.Online(receiverID) {
		sendDirectWSMessage(msg)
	}

	return msg, nil
}

// ListConversationMessages возвращает страницу истории диалога от новых к старым
func (ms *MessageService) ListConversationMessages(ctx context.Context, conversationID int64, page, limit int) ([]*models.Message, error) {
	offset := (page - 1) * limit
	rows, err := ms.store.Select(ctx, selectMessagesStmt, conversationID, offset+limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages of conversation %d: %w", conversationID, err)
	}
	return ms.mapMessagePage(conversationID, rows, offset), nil
}

// ListMessagesBefore возвращает страницу сообщений строго старше before.
// Сообщение с created_at == before в выдачу не попадает
func (ms *MessageService) ListMessagesBefore(ctx context.Context, conversationID int64, before time.Time, page, limit int) ([]*models.Message, error) {
	offset := (page - 1) * limit
	rows, err := ms.store.Select(ctx, selectMessagesBeforeStmt, conversationID, before, offset+limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages of conversation %d before %s: %w", conversationID, before, err)
	}
	return ms.mapMessagePage(conversationID, rows, offset), nil
}

func (ms *MessageService) mapMessagePage(conversationID int64, rows []map[string]interface{}, offset int) []*models.Message {
	if offset >= len(rows) {
		return []*models.Message{}
	}
	rows = rows[offset:]

	result := make([]*models.Message, 0, len(rows))
	for _, row := range rows {
		msg, err := models.MessageFromRow(row)
		if err != nil {
			log.Printf("ERROR: skipping malformed messages row in conversation %d: %v", conversationID, err)
			continue
		}
		result = append(result, msg)
	}
	return result
}
