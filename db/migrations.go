package db

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"
)

// CreateKeyspace создает keyspace мессенджера, если он не существует
func CreateKeyspace(session *gocql.Session, keyspace string) error {
	stmt := fmt.Sprintf(`
		CREATE KEYSPACE IF NOT EXISTS %s
		WITH replication = { 'class': 'SimpleStrategy', 'replication_factor': '1' }
	`, keyspace)
	if err := session.Query(stmt).Exec(); err != nil {
		return fmt.Errorf("failed to create keyspace %s: %w", keyspace, err)
	}
	return nil
}

// CreateMessengerTables создает таблицы мессенджера.
// Раскладка подобрана под три паттерна чтения без вторичных индексов:
// точечный lookup диалога, список диалогов пользователя по свежести,
// история сообщений диалога от новых к старым.
func CreateMessengerTables(store Store) error {
	ctx := context.Background()
	tables := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_id bigint PRIMARY KEY,
			user1_id bigint,
			user2_id bigint,
			last_message_at timestamp,
			last_message_content text
		)`,
		// Уникальность пары участников: каноничная пара (min, max) -> conversation_id,
		// вставка через LWT закрывает гонку create-or-get
		`CREATE TABLE IF NOT EXISTS conversation_pairs (
			user1_id bigint,
			user2_id bigint,
			conversation_id bigint,
			PRIMARY KEY ((user1_id, user2_id))
		)`,
		`CREATE TABLE IF NOT EXISTS user_conversations (
			user_id bigint,
			conversation_id bigint,
			other_user_id bigint,
			last_message_at timestamp,
			last_message_content text,
			PRIMARY KEY (user_id, last_message_at, conversation_id)
		) WITH CLUSTERING ORDER BY (last_message_at DESC, conversation_id ASC)`,
		`CREATE TABLE IF NOT EXISTS messages (
			conversation_id bigint,
			created_at timestamp,
			message_id uuid,
			sender_id bigint,
			receiver_id bigint,
			content text,
			PRIMARY KEY ((conversation_id), created_at, message_id)
		) WITH CLUSTERING ORDER BY (created_at DESC, message_id ASC)`,
	}
	for _, stmt := range tables {
		if err := store.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create messenger table: %w", err)
		}
	}
	return nil
}
