// Journal HTTP handlers.
//
//   - POST /journals        (add entry)
//   - GET  /journals?days=N (list, newest first, weak ETag)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/mindmate-backend/internal/domain"
	"github.com/tbourn/mindmate-backend/internal/services"
	"github.com/tbourn/mindmate-backend/internal/utils"
)

// CreateJournalRequest is the JSON payload for a new journal entry.
type CreateJournalRequest struct {
	Text string `json:"text" binding:"required" example:"Felt anxious before the exam, a walk helped."`
}

// ListJournalsResponse wraps the entries of a window.
type ListJournalsResponse struct {
	Days    int                   `json:"days"`
	Entries []domain.JournalEntry `json:"entries"`
}

// CreateJournal godoc
// @ID          createJournal
// @Summary     Add a journal entry
// @Tags        Journals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.CreateJournalRequest  true  "Entry"
// @Success     201   {object}  domain.JournalEntry
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     401   {object}  handlers.ErrorResponse
// @Router      /journals [post]
func (h *Handlers) CreateJournal(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text is required")
		return
	}
	e, err := h.journals.Add(c.Request.Context(), uid, req.Text)
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// ListJournals godoc
// @ID          listJournals
// @Summary     List journal entries
// @Description Entries of the last `days` days, newest first. Supports a weak ETag via If-None-Match.
// @Tags        Journals
// @Produce     json
// @Security    BearerAuth
// @Param       days           query   int     false  "Window in days"  minimum(1) maximum(365) default(30)
// @Param       If-None-Match  header  string  false  "Return 304 if the ETag matches"
// @Success     200  {object}  handlers.ListJournalsResponse
// @Header      200  {string}  ETag  "Weak ETag for the current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /journals [get]
func (h *Handlers) ListJournals(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	days := services.ClampWindow(utils.AtoiDefault(c.Query("days"), 0), services.DefaultJournalDays, services.MaxJournalDays)

	// The ETag pre-check is best effort; a stats failure just skips it.
	if n, latest, err := h.journals.Stats(ctx, uid, days); err == nil {
		var ts int64
		if latest != nil {
			ts = latest.UnixNano()
		}
		if notModified(c, weakETag("journals", uid, days, n, ts)) {
			c.Status(http.StatusNotModified)
			return
		}
	}

	entries, err := h.journals.List(ctx, uid, days)
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, ListJournalsResponse{Days: days, Entries: entries})
}
