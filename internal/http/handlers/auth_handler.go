package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-ai-chat/internal/domain"
	"github.com/tbourn/go-ai-chat/internal/services"
)

// CredentialsRequest is the JSON payload for signup and login.
type CredentialsRequest struct {
	Email    string `json:"email"    binding:"required" example:"ada@example.com"`
	Password string `json:"password" binding:"required" example:"correct horse battery"`
}

// SignupResponse confirms a new account.
type SignupResponse struct {
	Message string       `json:"message" example:"User created successfully"`
	User    *domain.User `json:"user"`
}

// LoginResponse carries the identity token for later requests.
type LoginResponse struct {
	Token string       `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	User  *domain.User `json:"user"`
}

// Signup godoc
// @ID          signup
// @Summary     Register an account
// @Description Creates a user from an email and a password of 8 to 72 bytes.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CredentialsRequest  true  "Credentials"
//
// @Success     201  {object} handlers.SignupResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid email or password"
// @Failure     409  {object} handlers.ErrorResponse "Email already registered"
// @Failure     429  {object} handlers.ErrorResponse "Too many requests"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/signup [post]
func (h *Handlers) Signup(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password are required")
		return
	}

	u, err := h.authSvc.Signup(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, services.ErrInvalidEmail), errors.Is(err, services.ErrWeakPassword):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeSignupFailed, "signup", err)
	default:
		ok(c, http.StatusCreated, SignupResponse{Message: "User created successfully", User: u})
	}
}

// Login godoc
// @ID          login
// @Summary     Log in
// @Description Verifies credentials and returns a bearer token. Unknown emails and wrong passwords get the same answer.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CredentialsRequest  true  "Credentials"
//
// @Success     200  {object} handlers.LoginResponse
// @Failure     400  {object} handlers.ErrorResponse "Malformed body"
// @Failure     401  {object} handlers.ErrorResponse "Invalid email or password"
// @Failure     429  {object} handlers.ErrorResponse "Too many requests"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password are required")
		return
	}

	token, u, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid email or password")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeLoginFailed, "login", err)
	default:
		ok(c, http.StatusOK, LoginResponse{Token: token, User: u})
	}
}
