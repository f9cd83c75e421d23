package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextResponse carries the personalization block sent to the model.
type ContextResponse struct {
	Context string `json:"context" example:"Recent Journals:\n- [2024-01-02] stressed about exam\n\nHabit Adherence (last 7 days): walk: 100%"`
}

// GetContext godoc
// @ID          getContext
// @Summary     Personalization context
// @Description The journal and habit summary injected ahead of each chat turn.
// @Tags        Chat
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.ContextResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /context [get]
func (h *Handlers) GetContext(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	block, err := h.contextSvc.Build(c.Request.Context(), uid)
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, ContextResponse{Context: block})
}
