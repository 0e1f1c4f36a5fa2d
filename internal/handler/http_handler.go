package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studyquiz/chat-service/internal/service"
)

const dateLayout = "2006-01-02"

// APIResponse is the common HTTP envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type HTTPHandler struct {
	chatService service.ChatService
}

func NewHTTPHandler(chatService service.ChatService) *HTTPHandler {
	return &HTTPHandler{
		chatService: chatService,
	}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1/chat")
	{
		api.GET("/:roomId/messages/daily", h.GetDailyMessages)
		api.GET("/:roomId/messages", h.GetMessagesByDate)
	}

	r.GET("/health", h.HealthCheck)
}

// GetDailyMessages returns today's not-yet-archived messages for a
// room, in insertion order.
func (h *HTTPHandler) GetDailyMessages(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	messages, err := h.chatService.FetchFromCache(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, APIResponse{
			Success: false,
			Error:   "failed to get today's messages",
		})
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    messages,
	})
}

// GetMessagesByDate returns the archived messages of a completed day.
func (h *HTTPHandler) GetMessagesByDate(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	day, err := time.Parse(dateLayout, c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Error:   "date must be formatted as YYYY-MM-DD",
		})
		return
	}

	messages, err := h.chatService.FetchByDate(c.Request.Context(), roomID, day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, APIResponse{
			Success: false,
			Error:   "failed to get archived messages",
		})
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    messages,
	})
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func roomIDParam(c *gin.Context) (int64, bool) {
	roomID, err := strconv.ParseInt(c.Param("roomId"), 10, 64)
	if err != nil || roomID <= 0 {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Error:   "invalid room id",
		})
		return 0, false
	}
	return roomID, true
}
