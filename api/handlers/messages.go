package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"messenger/api/middleware"
	"messenger/models"
	"messenger/services"

	"github.com/gin-gonic/gin"
)

type SendMessageRequest struct {
	SenderID   int64  `json:"sender_id" binding:"required"`
	ReceiverID int64  `json:"receiver_id" binding:"required"`
	Content    string `json:"content" binding:"required"`
}

type MessageResponse struct {
	ID             string    `json:"id"`
	SenderID       int64     `json:"sender_id"`
	ReceiverID     int64     `json:"receiver_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	ConversationID int64     `json:"conversation_id"`
}

type PaginatedMessageResponse struct {
	Total int               `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
	Data  []MessageResponse `json:"data"`
}

// MessageHandlers содержит обработчики отправки и чтения сообщений
type MessageHandlers struct {
	messages *services.MessageService
}

func NewMessageHandlers(messages *services.MessageService) *MessageHandlers {
	return &MessageHandlers{messages: messages}
}

func messageResponseFrom(msg *models.Message) MessageResponse {
	return MessageResponse{
		ID:             msg.ID.String(),
		SenderID:       msg.SenderID,
		ReceiverID:     msg.ReceiverID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
		ConversationID: msg.ConversationID,
	}
}

// SendMessageHandler - отправка сообщения пользователю
func (h *MessageHandlers) SendMessageHandler(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	start := time.Now()
	msg, err := h.messages.SendMessage(c.Request.Context(), req.SenderID, req.ReceiverID, req.Content)
	middleware.RecordMessengerOperation("send_message", statusLabel(err), "messenger", time.Since(start), err)

	if errors.Is(err, services.ErrSameUser) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Sender and receiver must be different users"})
		return
	}
	if err != nil {
		log.Printf("ERROR: SendMessage failed from %d to %d: %v", req.SenderID, req.ReceiverID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	c.JSON(http.StatusCreated, messageResponseFrom(msg))
}

// ListConversationMessagesHandler - история диалога от новых к старым
func (h *MessageHandlers) ListConversationMessagesHandler(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("conversation_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation_id"})
		return
	}
	page, limit := parsePagination(c)

	messages, err := h.messages.ListConversationMessages(c.Request.Context(), conversationID, page, limit)
	if err != nil {
		log.Printf("ERROR: ListConversationMessages failed for conversation %d: %v", conversationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list messages"})
		return
	}

	c.JSON(http.StatusOK, paginatedMessages(messages, page, limit))
}

// ListMessagesBeforeHandler - сообщения диалога строго старше before_timestamp
func (h *MessageHandlers) ListMessagesBeforeHandler(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("conversation_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation_id"})
		return
	}
	before, err := time.Parse(time.RFC3339, c.Query("before_timestamp"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid before_timestamp, expected RFC3339"})
		return
	}
	page, limit := parsePagination(c)

	messages, err := h.messages.ListMessagesBefore(c.Request.Context(), conversationID, before, page, limit)
	if err != nil {
		log.Printf("ERROR: ListMessagesBefore failed for conversation %d: %v", conversationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list messages"})
		return
	}

	c.JSON(http.StatusOK, paginatedMessages(messages, page, limit))
}

func paginatedMessages(messages []*models.Message, page, limit int) PaginatedMessageResponse {
	data := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		data = append(data, messageResponseFrom(msg))
	}
	return PaginatedMessageResponse{
		Total: len(data),
		Page:  page,
		Limit: limit,
		Data:  data,
	}
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
