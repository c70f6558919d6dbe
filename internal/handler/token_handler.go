package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/oauth-bridge/internal/models"
	"github.com/noah-isme/oauth-bridge/pkg/oautherr"
	"github.com/noah-isme/oauth-bridge/pkg/response"
)

type tokenService interface {
	Exchange(ctx context.Context, req models.TokenRequest) (*models.TokenResponse, error)
}

// TokenHandler wires the token endpoint to the token service.
type TokenHandler struct {
	service tokenService
}

// NewTokenHandler creates a new handler.
func NewTokenHandler(svc tokenService) *TokenHandler {
	return &TokenHandler{service: svc}
}

// Token godoc
// @Summary OAuth2 token endpoint
// @Description Exchanges an authorization code (or refresh token) for an access + refresh token pair
// @Tags OAuth2
// @Accept x-www-form-urlencoded
// @Produce json
// @Param grant_type formData string true "authorization_code or refresh_token"
// @Param code formData string false "Authorization code"
// @Param redirect_uri formData string false "Redirect URI used at authorize time"
// @Param refresh_token formData string false "Refresh token"
// @Param client_id formData string true "Client identifier"
// @Param client_secret formData string false "Client secret"
// @Success 200 {object} models.TokenResponse
// @Failure 400 {object} oautherr.Error
// @Failure 401 {object} oautherr.Error
// @Router /token [post]
func (h *TokenHandler) Token(c *gin.Context) {
	var req models.TokenRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, oautherr.Wrap(err, oautherr.ErrInvalidRequest.Code, oautherr.ErrInvalidRequest.Status, "malformed token request"))
		return
	}

	// Basic auth is accepted as an alternative client authentication method.
	if id, secret, ok := c.Request.BasicAuth(); ok {
		req.ClientID = id
		req.ClientSecret = secret
	}

	res, err := h.service.Exchange(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}
