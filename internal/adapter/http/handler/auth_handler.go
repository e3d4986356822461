package handler

import (
	"rubi-trail/internal/adapter/http/dto"
	"rubi-trail/internal/core/ports"
	"rubi-trail/pkg/apperror"
	"rubi-trail/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles Mini App sign-in.
type AuthHandler struct {
	identitySvc ports.IdentityService
	tokenSvc    ports.TokenService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(identitySvc ports.IdentityService, tokenSvc ports.TokenService) *AuthHandler {
	return &AuthHandler{identitySvc: identitySvc, tokenSvc: tokenSvc}
}

// Telegram handles POST /auth/telegram.
func (h *AuthHandler) Telegram(c *gin.Context) {
	var req dto.TelegramAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation("initData is required"))
		return
	}
	dto.TrimStruct(&req)

	account, err := h.identitySvc.Authenticate(c.Request.Context(), req.InitData)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, expiresAt, err := h.tokenSvc.Generate(account.ID)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	response.OK(c, dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		User:      dto.NewUserResponse(account),
	})
}
