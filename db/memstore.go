package db

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gocql/gocql"
)

// MemStore - in-memory реализация Store для тестов. Понимает только
// statement-ы мессенджера (таблицы conversations, conversation_pairs,
// user_conversations, messages) и воспроизводит clustering order и LIMIT
// так, как их отдает Cassandra.
type MemStore struct {
	mu sync.Mutex

	pairs         map[string]int64
	conversations map[int64]map[string]interface{}
	userConvs     map[string]map[string]interface{}
	messages      []map[string]interface{}
}

func NewMemStore() *MemStore {
	return &MemStore{
		pairs:         make(map[string]int64),
		conversations: make(map[int64]map[string]interface{}),
		userConvs:     make(map[string]map[string]interface{}),
	}
}

func pairKey(u1, u2 int64) string {
	return fmt.Sprintf("%d:%d", u1, u2)
}

func userConvKey(userID int64, at time.Time, convID int64) string {
	return fmt.Sprintf("%d:%d:%d", userID, at.UnixNano(), convID)
}

func copyRow(row map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func (s *MemStore) Exec(_ context.Context, stmt string, values ...interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	norm := strings.Join(strings.Fields(stmt), " ")
	switch {
	case strings.HasPrefix(norm, "CREATE "):
		return nil

	case strings.HasPrefix(norm, "INSERT INTO conversations "):
		// (conversation_id, user1_id, user2_id [, last_message_at, last_message_content])
		row := map[string]interface{}{
			"conversation_id": values[0],
			"user1_id":        values[1],
			"user2_id":        values[2],
		}
		if len(values) > 3 {
			row["last_message_at"] = values[3]
			row["last_message_content"] = values[4]
		}
		s.conversations[values[0].(int64)] = row
		return nil

	case strings.HasPrefix(norm, "UPDATE conversations "):
		// SET last_message_at = ?, last_message_content = ? WHERE conversation_id = ?
		row, ok := s.conversations[values[2].(int64)]
		if !ok {
			// Cassandra UPDATE - это upsert, но сервисы всегда резолвят диалог
			// до обновления, поэтому создаем пустую строку только для честности
			row = map[string]interface{}{
				"conversation_id": values[2],
				"user1_id":        int64(0),
				"user2_id":        int64(0),
			}
			s.conversations[values[2].(int64)] = row
		}
		row["last_message_at"] = values[0]
		row["last_message_content"] = values[1]
		return nil

	case strings.HasPrefix(norm, "INSERT INTO user_conversations "):
		// (user_id, conversation_id, other_user_id, last_message_at, last_message_content)
		key := userConvKey(values[0].(int64), values[3].(time.Time), values[1].(int64))
		s.userConvs[key] = map[string]interface{}{
			"user_id":              values[0],
			"conversation_id":      values[1],
			"other_user_id":        values[2],
			"last_message_at":      values[3],
			"last_message_content": values[4],
		}
		return nil

	case strings.HasPrefix(norm, "DELETE FROM user_conversations "):
		// WHERE user_id = ? AND last_message_at = ? AND conversation_id = ?
		delete(s.userConvs, userConvKey(values[0].(int64), values[1].(time.Time), values[2].(int64)))
		return nil

	case strings.HasPrefix(norm, "INSERT INTO messages "):
		// (conversation_id, created_at, message_id, sender_id, receiver_id, content)
		s.messages = append(s.messages, map[string]interface{}{
			"conversation_id": values[0],
			"created_at":      values[1],
			"message_id":      values[2],
			"sender_id":       values[3],
			"receiver_id":     values[4],
			"content":         values[5],
		})
		return nil
	}
	return fmt.Errorf("memstore: unsupported statement: %s", norm)
}

func (s *MemStore) Select(_ context.Context, stmt string, values ...interface{}) ([]map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	norm := strings.Join(strings.Fields(stmt), " ")
	switch {
	case strings.Contains(norm, "FROM conversation_pairs"):
		// WHERE user1_id = ? AND user2_id = ?
		if convID, ok := s.pairs[pairKey(values[0].(int64), values[1].(int64))]; ok {
			return []map[string]interface{}{{"conversation_id": convID}}, nil
		}
		return nil, nil

	case strings.Contains(norm, "FROM conversations"):
		// WHERE conversation_id = ?
		if row, ok := s.conversations[values[0].(int64)]; ok {
			return []map[string]interface{}{copyRow(row)}, nil
		}
		return nil, nil

	case strings.Contains(norm, "FROM user_conversations"):
		// WHERE user_id = ? ... LIMIT ?
		userID := values[0].(int64)
		limit := values[1].(int)
		rows := make([]map[string]interface{}, 0)
		for _, row := range s.userConvs {
			if row["user_id"].(int64) == userID {
				rows = append(rows, copyRow(row))
			}
		}
		sort.Slice(rows, func(i, j int) bool {
			ti := rows[i]["last_message_at"].(time.Time)
			tj := rows[j]["last_message_at"].(time.Time)
			if !ti.Equal(tj) {
				return ti.After(tj)
			}
			return rows[i]["conversation_id"].(int64) < rows[j]["conversation_id"].(int64)
		})
		if len(rows) > limit {
			rows = rows[:limit]
		}
		return rows, nil

	case strings.Contains(norm, "FROM messages"):
		// WHERE conversation_id = ? [AND created_at < ?] LIMIT ?
		convID := values[0].(int64)
		var before *time.Time
		limitIdx := 1
		if strings.Contains(norm, "created_at <") {
			ts := values[1].(time.Time)
			before = &ts
			limitIdx = 2
		}
		limit := values[limitIdx].(int)
		rows := make([]map[string]interface{}, 0)
		for _, row := range s.messages {
			if row["conversation_id"].(int64) != convID {
				continue
			}
			if before != nil && !row["created_at"].(time.Time).Before(*before) {
				continue
			}
			rows = append(rows, copyRow(row))
		}
		sort.Slice(rows, func(i, j int) bool {
			ti := rows[i]["created_at"].(time.Time)
			tj := rows[j]["created_at"].(time.Time)
			if !ti.Equal(tj) {
				return ti.After(tj)
			}
			idI := rows[i]["message_id"].(gocql.UUID)
			idJ := rows[j]["message_id"].(gocql.UUID)
			return bytes.Compare(idI[:], idJ[:]) < 0
		})
		if len(rows) > limit {
			rows = rows[:limit]
		}
		return rows, nil
	}
	return nil, fmt.Errorf("memstore: unsupported statement: %s", norm)
}

func (s *MemStore) SelectOne(ctx context.Context, stmt string, values ...interface{}) (map[string]interface{}, error) {
	rows, err := s.Select(ctx, stmt, values...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (s *MemStore) ExecCAS(_ context.Context, stmt string, values ...interface{}) (bool, map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	norm := strings.Join(strings.Fields(stmt), " ")
	if !strings.HasPrefix(norm, "INSERT INTO conversation_pairs ") || !strings.Contains(norm, "IF NOT EXISTS") {
		return false, nil, fmt.Errorf("memstore: unsupported CAS statement: %s", norm)
	}
	// (user1_id, user2_id, conversation_id)
	key := pairKey(values[0].(int64), values[1].(int64))
	if existing, ok := s.pairs[key]; ok {
		return false, map[string]interface{}{
			"user1_id":        values[0],
			"user2_id":        values[1],
			"conversation_id": existing,
		}, nil
	}
	s.pairs[key] = values[2].(int64)
	return true, nil, nil
}

func (s *MemStore) Close() {}
