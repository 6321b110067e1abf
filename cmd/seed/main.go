package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"messenger/config"
	"messenger/db"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gocql/gocql"
)

// Генератор тестовых данных: случайные пары пользователей с перепиской,
// согласованной по summary-полям. Запускать после поднятия Cassandra:
//
//	go run ./cmd/seed -config config.yaml -users 10 -conversations 15
func main() {
	var configPath string
	var numUsers, numConversations, maxMessages int
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.IntVar(&numUsers, "users", 10, "Number of users")
	flag.IntVar(&numConversations, "conversations", 15, "Number of conversations")
	flag.IntVar(&maxMessages, "max-messages", 20, "Maximum messages per conversation")
	flag.Parse()

	if err := config.LoadConfig(configPath); err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	if err := db.ConnectCassandra(); err != nil {
		log.Fatal("Failed to connect to Cassandra: ", err)
	}
	defer db.CloseCassandra()

	ctx := context.Background()
	store := db.Cassandra
	now := time.Now().UTC().Truncate(time.Millisecond)

	// Уникальные случайные пары
	pairs := make(map[[2]int64]bool)
	for len(pairs) < numConversations {
		u1 := int64(gofakeit.Number(1, numUsers))
		u2 := int64(gofakeit.Number(1, numUsers))
		if u1 == u2 {
			continue
		}
		if u1 > u2 {
			u1, u2 = u2, u1
		}
		pairs[[2]int64{u1, u2}] = true
	}

	conversationIDs := make([]int64, 0, numConversations)
	for pair := range pairs {
		user1ID, user2ID := pair[0], pair[1]
		conversationID := now.UnixMilli() + rand.Int63n(100000)
		conversationIDs = append(conversationIDs, conversationID)

		if err := store.Exec(ctx,
			`INSERT INTO conversation_pairs (user1_id, user2_id, conversation_id) VALUES (?, ?, ?)`,
			user1ID, user2ID, conversationID); err != nil {
			log.Fatal("Failed to insert conversation pair: ", err)
		}

		// Переписка с чередованием сторон, задним числом по минуте на сообщение
		numMessages := gofakeit.Number(5, maxMessages)
		var lastMessageAt time.Time
		var lastMessageContent string
		for i := 0; i < numMessages; i++ {
			senderID, receiverID := user1ID, user2ID
			if i%2 == 1 {
				senderID, receiverID = user2ID, user1ID
			}
			createdAt := now.Add(-time.Duration(numMessages-i) * time.Minute)
			content := gofakeit.Sentence(gofakeit.Number(3, 12))
			messageID, err := gocql.RandomUUID()
			if err != nil {
				log.Fatal("Failed to generate message id: ", err)
			}
			if err := store.Exec(ctx,
				`INSERT INTO messages (conversation_id, created_at, message_id, sender_id, receiver_id, content) VALUES (?, ?, ?, ?, ?, ?)`,
				conversationID, createdAt, messageID, senderID, receiverID, content); err != nil {
				log.Fatal("Failed to insert message: ", err)
			}
			lastMessageAt = createdAt
			lastMessageContent = content
		}

		if err := store.Exec(ctx,
			`INSERT INTO conversations (conversation_id, user1_id, user2_id, last_message_at, last_message_content) VALUES (?, ?, ?, ?, ?)`,
			conversationID, user1ID, user2ID, lastMessageAt, lastMessageContent); err != nil {
			log.Fatal("Failed to insert conversation: ", err)
		}
		for _, p := range [][2]int64{{user1ID, user2ID}, {user2ID, user1ID}} {
			if err := store.Exec(ctx,
				`INSERT INTO user_conversations (user_id, conversation_id, other_user_id, last_message_at, last_message_content) VALUES (?, ?, ?, ?, ?)`,
				p[0], conversationID, p[1], lastMessageAt, lastMessageContent); err != nil {
				log.Fatal("Failed to insert user conversation: ", err)
			}
		}
	}

	log.Printf("Generated %d conversations with messages", len(conversationIDs))
	fmt.Println("Conversation IDs:", conversationIDs)
	fmt.Printf("User IDs: 1..%d\n", numUsers)
}
