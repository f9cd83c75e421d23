// Habit HTTP handlers.
//
//   - POST /habits                (create)
//   - GET  /habits                (list, oldest first)
//   - PUT  /habits/{id}/logs      (mark a day done or not done)
//   - GET  /habits/progress       (left-joined rows for charting)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/mindmate-backend/internal/domain"
	"github.com/tbourn/mindmate-backend/internal/services"
	"github.com/tbourn/mindmate-backend/internal/utils"
)

// CreateHabitRequest is the JSON payload for a new habit.
type CreateHabitRequest struct {
	Name string `json:"name" binding:"required" example:"Evening walk"`
}

// LogHabitRequest sets the completion state of one day. An empty date means
// today (UTC).
type LogHabitRequest struct {
	Date      string `json:"date"      example:"2024-01-31"`
	Completed *bool  `json:"completed" binding:"required" example:"true"`
}

// ListHabitsResponse wraps the user's habits.
type ListHabitsResponse struct {
	Habits []domain.Habit `json:"habits"`
}

// ProgressResponse wraps the raw habit/log rows of a window.
type ProgressResponse struct {
	Days int                  `json:"days"`
	Rows []domain.HabitLogRow `json:"rows"`
}

// CreateHabit godoc
// @ID          createHabit
// @Summary     Create a habit
// @Tags        Habits
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.CreateHabitRequest  true  "Habit"
// @Success     201   {object}  domain.Habit
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     401   {object}  handlers.ErrorResponse
// @Router      /habits [post]
func (h *Handlers) CreateHabit(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name is required")
		return
	}
	hb, err := h.habits.Create(c.Request.Context(), uid, req.Name)
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusCreated, hb)
}

// ListHabits godoc
// @ID          listHabits
// @Summary     List habits
// @Tags        Habits
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.ListHabitsResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /habits [get]
func (h *Handlers) ListHabits(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	hs, err := h.habits.List(c.Request.Context(), uid)
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, ListHabitsResponse{Habits: hs})
}

// LogHabit godoc
// @ID          logHabit
// @Summary     Record a day for a habit
// @Description Upserts the (habit, date) log; repeating the call overwrites the day.
// @Tags        Habits
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                    true  "Habit ID"  format(uuid)
// @Param       body  body      handlers.LogHabitRequest  true  "Day state"
// @Success     200   {object}  domain.HabitLog
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     404   {object}  handlers.ErrorResponse  "Habit not found"
// @Router      /habits/{id}/logs [put]
func (h *Handlers) LogHabit(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req LogHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "completed is required")
		return
	}
	lg, err := h.habits.Toggle(c.Request.Context(), uid, c.Param("id"), req.Date, *req.Completed)
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, lg)
}

// HabitProgress godoc
// @ID          habitProgress
// @Summary     Habit progress rows
// @Description Every habit left-joined with its logs of the last `days` days. Never-logged habits have null date and completed.
// @Tags        Habits
// @Produce     json
// @Security    BearerAuth
// @Param       days  query     int  false  "Window in days"  minimum(1) maximum(365) default(14)
// @Success     200   {object}  handlers.ProgressResponse
// @Failure     401   {object}  handlers.ErrorResponse
// @Router      /habits/progress [get]
func (h *Handlers) HabitProgress(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	days := services.ClampWindow(utils.AtoiDefault(c.Query("days"), 0), services.DefaultProgressDays, services.MaxProgressDays)
	rows, err := h.habits.Progress(c.Request.Context(), uid, days)
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, ProgressResponse{Days: days, Rows: rows})
}
