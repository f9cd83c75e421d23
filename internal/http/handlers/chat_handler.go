// Chat HTTP handlers.
//
//   - POST /chat/messages       (send a message, Idempotency-Key aware)
//   - GET  /chat/messages       (recent history, chronological)
//   - GET  /chat/messages/{id}  (one message)
//
// A failed model call is not an HTTP error: the apology comes back as the
// assistant reply with persisted=false.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/mindmate-backend/internal/domain"
	"github.com/tbourn/mindmate-backend/internal/http/middleware"
	"github.com/tbourn/mindmate-backend/internal/services"
	"github.com/tbourn/mindmate-backend/internal/utils"
)

// HeaderIdempotentReplay marks responses served from a stored result.
const HeaderIdempotentReplay = "Idempotent-Replayed"

// SendMessageRequest is the JSON payload for a chat turn.
type SendMessageRequest struct {
	Message string `json:"message" binding:"required" example:"I feel stressed about tomorrow."`
}

// SendMessageResponse is the assistant's reply.
type SendMessageResponse struct {
	Reply domain.ChatMessage `json:"reply"`
	// Persisted is false when the reply is an apology that was not stored.
	Persisted bool `json:"persisted"`
	// Replayed is true when the reply was served for a repeated Idempotency-Key.
	Replayed bool `json:"replayed"`
}

// HistoryResponse wraps recent chat messages, oldest first.
type HistoryResponse struct {
	Messages []domain.ChatMessage `json:"messages"`
}

// SendMessage godoc
// @ID          sendMessage
// @Summary     Send a chat message
// @Description Runs one chat turn with personal context. 201 when the exchange is stored, 200 for a replay or an apology.
// @Tags        Chat
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header    string                       false  "Deduplicates retries"  maxLength(200)
// @Param       body             body      handlers.SendMessageRequest  true   "Message"
// @Success     201  {object}  handlers.SendMessageResponse
// @Success     200  {object}  handlers.SendMessageResponse
// @Header      200  {string}  Idempotent-Replayed  "true when served from a stored result"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     429  {object}  handlers.ErrorResponse
// @Router      /chat/messages [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message is required")
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	// The validator already found a stored result; serve it without a turn.
	if middleware.IsReplay(c) {
		if r, err := h.chat.Replay(c.Request.Context(), uid, key); err == nil && r != nil {
			c.Header(HeaderIdempotentReplay, "true")
			c.JSON(http.StatusOK, SendMessageResponse{Reply: *r.Message, Persisted: r.Persisted, Replayed: true})
			return
		}
	}

	r, err := h.chat.Send(c.Request.Context(), uid, req.Message, key)
	if err != nil {
		failFrom(c, err)
		return
	}

	status := http.StatusOK
	switch {
	case r.Replayed:
		c.Header(HeaderIdempotentReplay, "true")
	case r.Persisted:
		status = http.StatusCreated
	}
	c.JSON(status, SendMessageResponse{Reply: *r.Message, Persisted: r.Persisted, Replayed: r.Replayed})
}

// ListMessages godoc
// @ID          listMessages
// @Summary     Recent chat history
// @Tags        Chat
// @Produce     json
// @Security    BearerAuth
// @Param       limit  query     int  false  "Number of messages"  minimum(1) maximum(100) default(8)
// @Success     200    {object}  handlers.HistoryResponse
// @Failure     401    {object}  handlers.ErrorResponse
// @Router      /chat/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	limit := services.ClampWindow(utils.AtoiDefault(c.Query("limit"), 0), services.DefaultHistoryView, services.MaxHistoryView)
	msgs, err := h.chat.History(c.Request.Context(), uid, limit)
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{Messages: msgs})
}

// GetMessage godoc
// @ID          getMessage
// @Summary     One chat message
// @Tags        Chat
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      int  true  "Message ID"
// @Success     200  {object}  domain.ChatMessage
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /chat/messages/{id} [get]
func (h *Handlers) GetMessage(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be a positive integer")
		return
	}
	m, err := h.chat.Get(c.Request.Context(), uid, id)
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
