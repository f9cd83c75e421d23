// Account HTTP handlers.
//
//   - POST /auth/signup  (create account)
//   - POST /auth/login   (issue bearer token)
//   - GET  /auth/me      (current account; authenticated)
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/mindmate-backend/internal/domain"
)

// SignupRequest is the JSON payload for creating an account.
type SignupRequest struct {
	Email    string `json:"email"    binding:"required,email,max=255" example:"jane@example.com"`
	Username string `json:"username" binding:"required,max=64"        example:"jane"`
	Password string `json:"password" binding:"required,max=72"        example:"s3cret!"`
}

// LoginRequest is the JSON payload for logging in.
type LoginRequest struct {
	Email    string `json:"email"    binding:"required" example:"jane@example.com"`
	Password string `json:"password" binding:"required" example:"s3cret!"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginResponse carries a bearer token and the account it belongs to.
type LoginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type" example:"Bearer"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Username: u.Username, CreatedAt: u.CreatedAt}
}

// Signup godoc
// @ID          signup
// @Summary     Create an account
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SignupRequest  true  "Account details"
// @Success     201   {object}  handlers.UserResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid input"
// @Failure     409   {object}  handlers.ErrorResponse  "Email or username already exists."
// @Router      /auth/signup [post]
func (h *Handlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email, username and password are required; email must be valid")
		return
	}
	u, err := h.auth.Signup(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(u))
}

// Login godoc
// @ID          login
// @Summary     Log in
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Credentials"
// @Success     200   {object}  handlers.LoginResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid input"
// @Failure     401   {object}  handlers.ErrorResponse  "Invalid email or password."
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password are required")
		return
	}
	s, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, LoginResponse{
		Token:     s.Token,
		TokenType: "Bearer",
		ExpiresAt: s.ExpiresAt,
		User:      toUserResponse(s.User),
	})
}

// Me godoc
// @ID          me
// @Summary     Current account
// @Tags        Auth
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.UserResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /auth/me [get]
func (h *Handlers) Me(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	u, err := h.auth.Me(c.Request.Context(), uid)
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}
