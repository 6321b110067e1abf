package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"messenger/db"
	"messenger/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	store := db.NewMemStore()
	conversationService := services.NewConversationService(store)
	messageService := services.NewMessageService(store, conversationService)

	conversations := NewConversationHandlers(conversationService)
	messages := NewMessageHandlers(messageService)

	r := gin.New()
	r.POST("/api/v1/messages/", messages.SendMessageHandler)
	r.GET("/api/v1/messages/conversation/:conversation_id", messages.ListConversationMessagesHandler)
	r.GET("/api/v1/messages/conversation/:conversation_id/before", messages.ListMessagesBeforeHandler)
	r.GET("/api/v1/conversations/user/:user_id", conversations.ListUserConversationsHandler)
	r.GET("/api/v1/conversation/:conversation_id", conversations.GetConversationHandler)
	return r
}

func sendMessage(t *testing.T, r *gin.Engine, senderID, receiverID int64, content string) MessageResponse {
	t.Helper()
	body, _ := json.Marshal(map[string]interface{}{
		"sender_id":   senderID,
		"receiver_id": receiverID,
		"content":     content,
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/messages/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp MessageResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSendMessageEndpoint(t *testing.T) {
	r := newTestRouter()

	resp := sendMessage(t, r, 1, 2, "Hello, user 2!")
	assert.NotEmpty(t, resp.ID)
	assert.NotZero(t, resp.ConversationID)
	assert.Equal(t, int64(1), resp.SenderID)
	assert.Equal(t, int64(2), resp.ReceiverID)
	assert.Equal(t, "Hello, user 2!", resp.Content)
}

func TestSendMessageValidation(t *testing.T) {
	r := newTestRouter()

	// Пустое тело
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/messages/", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Отправка самому себе
	body, _ := json.Marshal(map[string]interface{}{
		"sender_id": 1, "receiver_id": 1, "content": "hi me",
	})
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/v1/messages/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetConversationEndpoint(t *testing.T) {
	r := newTestRouter()
	sent := sendMessage(t, r, 1, 2, "hi")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", fmt.Sprintf("/api/v1/conversation/%d", sent.ConversationID), nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp ConversationResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, sent.ConversationID, resp.ID)
	assert.NotNil(t, resp.User1ID)
	assert.Equal(t, int64(1), *resp.User1ID)
	assert.Equal(t, int64(2), resp.User2ID)
	assert.Equal(t, "hi", resp.LastMessageContent)
}

func TestGetConversationNotFound(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/conversation/99999", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/v1/conversation/not-a-number", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListConversationMessagesEnvelope(t *testing.T) {
	r := newTestRouter()

	first := sendMessage(t, r, 1, 2, "hi")
	time.Sleep(2 * time.Millisecond)
	sendMessage(t, r, 2, 1, "hey")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET",
		fmt.Sprintf("/api/v1/messages/conversation/%d?page=1&limit=20", first.ConversationID), nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp PaginatedMessageResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 20, resp.Limit)
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, "hey", resp.Data[0].Content)
	assert.Equal(t, "hi", resp.Data[1].Content)
}

func TestListUserConversationsEndpoint(t *testing.T) {
	r := newTestRouter()

	sent := sendMessage(t, r, 1, 2, "hi")

	for _, userID := range []int64{1, 2} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", fmt.Sprintf("/api/v1/conversations/user/%d", userID), nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp PaginatedConversationResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Total)
		assert.Len(t, resp.Data, 1)
		assert.Equal(t, sent.ConversationID, resp.Data[0].ID)
		assert.Equal(t, "hi", resp.Data[0].LastMessageContent)
	}
}

func TestListMessagesBeforeEndpoint(t *testing.T) {
	r := newTestRouter()

	first := sendMessage(t, r, 1, 2, "old")
	time.Sleep(2 * time.Millisecond)
	second := sendMessage(t, r, 1, 2, "new")

	// Строго раньше второго сообщения
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET",
		fmt.Sprintf("/api/v1/messages/conversation/%d/before?before_timestamp=%s",
			first.ConversationID, second.CreatedAt.Format(time.RFC3339Nano)), nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp PaginatedMessageResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "old", resp.Data[0].Content)

	// Невалидный timestamp
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET",
		fmt.Sprintf("/api/v1/messages/conversation/%d/before?before_timestamp=yesterday", first.ConversationID), nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaginationDefaults(t *testing.T) {
	r := newTestRouter()
	sent := sendMessage(t, r, 1, 2, "hi")

	// Мусорные page/limit откатываются к дефолтам
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET",
		fmt.Sprintf("/api/v1/messages/conversation/%d?page=-5&limit=0", sent.ConversationID), nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp PaginatedMessageResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 20, resp.Limit)
}
