package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"time"

	"messenger/db"
	"messenger/models"
)

var (
	// ErrConversationNotFound - точечный lookup не нашел диалог
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrSameUser - диалог пользователя с самим собой не моделируется
	ErrSameUser = errors.New("sender and receiver must be different users")
)

const pairCacheKeyPrefix = "conv_pair:"

const (
	selectPairStmt = `SELECT conversation_id FROM conversation_pairs WHERE user1_id = ? AND user2_id = ?`
	insertPairStmt = `INSERT INTO conversation_pairs (user1_id, user2_id, conversation_id) VALUES (?, ?, ?) IF NOT EXISTS`

	// Summary-колонки не пишутся при создании: они останутся null до первого сообщения
	insertConversationStmt = `INSERT INTO conversations (conversation_id, user1_id, user2_id) VALUES (?, ?, ?)`
	selectConversationStmt = `SELECT conversation_id, user1_id, user2_id, last_message_at, last_message_content FROM conversations WHERE conversation_id = ?`

	selectUserConversationsStmt = `SELECT user_id, conversation_id, other_user_id, last_message_at, last_message_content FROM user_conversations WHERE user_id = ? ORDER BY last_message_at DESC, conversation_id ASC LIMIT ?`
)

// ConversationService отвечает за идентичность диалогов (find-or-create по
// неупорядоченной паре пользователей) и чтение диалогов
type ConversationService struct {
	store db.Store
}

func NewConversationService(store db.Store) *ConversationService {
	return &ConversationService{store: store}
}

// newConversationID генерирует идентификатор без центрального sequence:
// миллисекундный epoch плюс небольшая случайная добавка. Монотонный с
// точностью до миллисекунды, коллизии при конкурентном создании гасятся
// LWT-вставкой в conversation_pairs
func newConversationID() int64 {
	return time.Now().UnixMilli() + rand.Int63n(1000)
}

// canonicalPair приводит пару к каноническому порядку (min, max),
// чтобы (A,B) и (B,A) резолвились в один и тот же диалог
func canonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// GetOrCreateConversation возвращает идентификатор диалога пары, создавая
// диалог при первом контакте. Гонка двух одновременных созданий закрыта
// условной вставкой: проигравший забирает conversation_id победителя
func (cs *ConversationService) GetOrCreateConversation(ctx context.Context, userA, userB int64) (int64, error) {
	if userA == userB {
		return 0, ErrSameUser
	}
	u1, u2 := canonicalPair(userA, userB)

	if convID, ok := cs.pairFromCache(ctx, u1, u2); ok {
		return convID, nil
	}

	row, err := cs.store.SelectOne(ctx, selectPairStmt, u1, u2)
	if err != nil {
		return 0, fmt.Errorf("failed to look up conversation pair (%d, %d): %w", u1, u2, err)
	}
	if row != nil {
		convID, ok := row["conversation_id"].(int64)
		if !ok {
			return 0, fmt.Errorf("conversation_pairs row (%d, %d): invalid conversation_id", u1, u2)
		}
		cs.cachePair(ctx, u1, u2, convID)
		return convID, nil
	}

	convID := newConversationID()
	applied, prev, err := cs.store.ExecCAS(ctx, insertPairStmt, u1, u2, convID)
	if err != nil {
		return 0, fmt.Errorf("failed to register conversation pair (%d, %d): %w", u1, u2, err)
	}
	if !applied {
		// Кто-то создал диалог между нашим SELECT и INSERT
		existing, ok := prev["conversation_id"].(int64)
		if !ok {
			return 0, fmt.Errorf("conversation_pairs CAS for (%d, %d): invalid previous row", u1, u2)
		}
		cs.cachePair(ctx, u1, u2, existing)
		return existing, nil
	}

	// Summary-поля пустые: их заполнит первое настоящее сообщение
	if err := cs.store.Exec(ctx, insertConversationStmt, convID, u1, u2); err != nil {
		return 0, fmt.Errorf("failed to create conversation %d: %w", convID, err)
	}
	cs.cachePair(ctx, u1, u2, convID)
	return convID, nil
}

// GetConversation - точечный lookup диалога по первичному ключу
func (cs *ConversationService) GetConversation(ctx context.Context, conversationID int64) (*models.Conversation, error) {
	row, err := cs.store.SelectOne(ctx, selectConversationStmt, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation %d: %w", conversationID, err)
	}
	if row == nil {
		return nil, ErrConversationNotFound
	}
	conv, err := models.ConversationFromRow(row)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// ListUserConversations возвращает страницу диалогов пользователя по свежести.
// Хранилище отдает первые offset+limit строк партиции в clustering order,
// offset отбрасывается на нашей стороне: skip-примитива у хранилища нет,
// поэтому каждая следующая страница дочитывает и выбрасывает предыдущие
func (cs *ConversationService) ListUserConversations(ctx context.Context, userID int64, page, limit int) ([]*models.UserConversation, error) {
	offset := (page - 1) * limit
	rows, err := cs.store.Select(ctx, selectUserConversationsStmt, userID, offset+limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations for user %d: %w", userID, err)
	}
	if offset >= len(rows) {
		return []*models.UserConversation{}, nil
	}
	rows = rows[offset:]

	result := make([]*models.UserConversation, 0, len(rows))
	for _, row := range rows {
		uc, err := models.UserConversationFromRow(row)
		if err != nil {
			// Битая строка не роняет страницу - страница вернется короче
			log.Printf("ERROR: skipping malformed user_conversations row for user %d: %v", userID, err)
			continue
		}
		result = append(result, uc)
	}
	return result, nil
}

// pairFromCache читает immutable-маппинг пара -> conversation_id из Redis.
// Кеш опциональный: без Redis резолвер просто ходит в хранилище
func (cs *ConversationService) pairFromCache(ctx context.Context, u1, u2 int64) (int64, bool) {
	if RedisClient == nil {
		return 0, false
	}
	key := fmt.Sprintf("%s%d:%d", pairCacheKeyPrefix, u1, u2)
	val, err := RedisClient.Get(ctx, key).Result()
	if err != nil {
		return 0, false
	}
	convID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return convID, true
}

func (cs *ConversationService) cachePair(ctx context.Context, u1, u2, convID int64) {
	if RedisClient == nil {
		return
	}
	key := fmt.Sprintf("%s%d:%d", pairCacheKeyPrefix, u1, u2)
	if err := RedisClient.Set(ctx, key, strconv.FormatInt(convID, 10), 24*time.Hour).Err(); err != nil {
		log.Printf("Failed to cache conversation pair %s: %v", key, err)
	}
}
