package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/florafleet/pollination-api/internal/core/port"
	"github.com/florafleet/pollination-api/internal/transport/http/middleware"
	"github.com/florafleet/pollination-api/internal/usecase"
)

// AuthHandler exposes the credential endpoints.
type AuthHandler struct {
	credentials      *usecase.CredentialService
	exposeResetToken bool
}

// NewAuthHandler builds the auth handler. exposeResetToken should only
// be enabled in development: it echoes reset tokens in the response
// body instead of leaving delivery to an out-of-band channel.
func NewAuthHandler(credentials *usecase.CredentialService, exposeResetToken bool) *AuthHandler {
	return &AuthHandler{
		credentials:      credentials,
		exposeResetToken: exposeResetToken,
	}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	result, err := h.credentials.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrDuplicateAccount, Status: http.StatusBadRequest, Message: "account already exists"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet policy requirements"},
			{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "invalid request payload"},
		}, http.StatusInternalServerError, "registration failed")
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{
		Token: result.Token,
		User:  newAccountSummary(result.Account),
	})
}

// Login handles POST /api/v1/auth/login. Unknown email and wrong
// password produce an identical response.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	result, err := h.credentials.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusBadRequest, Message: "invalid credentials"},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Token: result.Token,
		User:  newAccountSummary(result.Account),
	})
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	account, err := h.credentials.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to load account")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(*account))
}

// UpdateProfile handles PUT /api/v1/auth/me.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	account, err := h.credentials.UpdateProfile(c.Request.Context(), accountID, port.AccountUpdate{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrDuplicateAccount, Status: http.StatusBadRequest, Message: "email already in use"},
			{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "invalid request payload"},
		}, http.StatusInternalServerError, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(*account))
}

// ChangePassword handles PUT /api/v1/auth/password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	err := h.credentials.ChangePassword(c.Request.Context(), accountID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusBadRequest, Message: "current password is incorrect"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet policy requirements"},
		}, http.StatusInternalServerError, "failed to change password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}

// RequestPasswordReset handles POST /api/v1/auth/reset.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	initiation, err := h.credentials.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "invalid request payload"},
		}, http.StatusInternalServerError, "failed to initiate password reset")
		return
	}

	resp := PasswordResetResponse{
		Message:   "password reset initiated",
		ExpiresAt: initiation.ExpiresAt,
	}
	if h.exposeResetToken {
		resp.ResetToken = &initiation.Token
	}

	c.JSON(http.StatusOK, resp)
}

// Logout handles POST /api/v1/auth/logout. Tokens are stateless, so
// this is a confirmation only; the client discards its token.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}
