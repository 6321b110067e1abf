package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"messenger/services"

	"github.com/gin-gonic/gin"
)

// ConversationResponse - представление диалога для клиента. В списке диалогов
// user1_id недоступен (строка user_conversations его не хранит), поэтому поле
// nullable, а user2_id несет собеседника
type ConversationResponse struct {
	ID                 int64     `json:"id"`
	User1ID            *int64    `json:"user1_id"`
	User2ID            int64     `json:"user2_id"`
	LastMessageAt      time.Time `json:"last_message_at"`
	LastMessageContent string    `json:"last_message_content"`
}

// PaginatedConversationResponse - конверт страницы диалогов. total считает
// строки возвращенной страницы, полный размер партиции не запрашивается
type PaginatedConversationResponse struct {
	Total int                    `json:"total"`
	Page  int                    `json:"page"`
	Limit int                    `json:"limit"`
	Data  []ConversationResponse `json:"data"`
}

// ConversationHandlers содержит обработчики чтения диалогов
type ConversationHandlers struct {
	conversations *services.ConversationService
}

func NewConversationHandlers(conversations *services.ConversationService) *ConversationHandlers {
	return &ConversationHandlers{conversations: conversations}
}

// parsePagination читает page/limit из query с дефолтами 1/20
func parsePagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100 // Ограничиваем максимальный размер страницы
	}
	return page, limit
}

// ListUserConversationsHandler - список диалогов пользователя по свежести
func (h *ConversationHandlers) ListUserConversationsHandler(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}
	page, limit := parsePagination(c)

	conversations, err := h.conversations.ListUserConversations(c.Request.Context(), userID, page, limit)
	if err != nil {
		log.Printf("ERROR: ListUserConversations failed for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list conversations"})
		return
	}

	data := make([]ConversationResponse, 0, len(conversations))
	for _, uc := range conversations {
		data = append(data, ConversationResponse{
			ID:                 uc.ConversationID,
			User2ID:            uc.OtherUserID,
			LastMessageAt:      uc.LastMessageAt,
			LastMessageContent: uc.LastMessageContent,
		})
	}
	c.JSON(http.StatusOK, PaginatedConversationResponse{
		Total: len(data),
		Page:  page,
		Limit: limit,
		Data:  data,
	})
}

// GetConversationHandler - точечный lookup диалога
func (h *ConversationHandlers) GetConversationHandler(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("conversation_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation_id"})
		return
	}

	conv, err := h.conversations.GetConversation(c.Request.Context(), conversationID)
	if errors.Is(err, services.ErrConversationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	if err != nil {
		log.Printf("ERROR: GetConversation failed for conversation %d: %v", conversationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get conversation"})
		return
	}

	c.JSON(http.StatusOK, ConversationResponse{
		ID:                 conv.ID,
		User1ID:            &conv.User1ID,
		User2ID:            conv.User2ID,
		LastMessageAt:      conv.LastMessageAt,
		LastMessageContent: conv.LastMessageContent,
	})
}
