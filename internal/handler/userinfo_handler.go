package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/oauth-bridge/internal/models"
	"github.com/noah-isme/oauth-bridge/internal/upstream"
	"github.com/noah-isme/oauth-bridge/pkg/oautherr"
	"github.com/noah-isme/oauth-bridge/pkg/response"
)

type sessionService interface {
	UserInfo(ctx context.Context, rawToken string, artifact upstream.SessionArtifact) (*models.UserInfoResponse, error)
	Revoke(ctx context.Context, rawToken string) error
}

// UserInfoHandler wires the userinfo and revocation endpoints to the session service.
type UserInfoHandler struct {
	service sessionService
}

// NewUserInfoHandler creates a new handler.
func NewUserInfoHandler(svc sessionService) *UserInfoHandler {
	return &UserInfoHandler{service: svc}
}

// UserInfo godoc
// @Summary OpenID Connect userinfo endpoint
// @Description Returns claims about the subject of a valid, unrevoked access token
// @Tags OAuth2
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserInfoResponse
// @Failure 401 {object} oautherr.Error
// @Router /userinfo [get]
func (h *UserInfoHandler) UserInfo(c *gin.Context) {
	raw := bearerToken(c)
	if raw == "" {
		c.Header("WWW-Authenticate", `Bearer realm="userinfo"`)
		response.Error(c, oautherr.WithDescription(oautherr.ErrInvalidToken, "missing or malformed Authorization header"))
		return
	}

	// The provider session cookie, when the browser sends one along, allows
	// enrichment beyond the token's own claims. The bearer slot is left empty:
	// the Authorization header here carries the bridge's access token, not a
	// provider credential.
	artifact := upstream.SessionArtifact{}
	if cookie, err := c.Request.Cookie(upstream.SessionCookieName); err == nil {
		artifact.Cookie = cookie.Value
	}

	info, err := h.service.UserInfo(c.Request.Context(), raw, artifact)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, info)
}

// Revoke godoc
// @Summary Token revocation endpoint
// @Description Invalidates the presented access token ahead of its natural expiry and revokes the subject's refresh tokens
// @Tags OAuth2
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]bool
// @Failure 401 {object} oautherr.Error
// @Router /revoke [post]
func (h *UserInfoHandler) Revoke(c *gin.Context) {
	raw := bearerToken(c)
	if raw == "" {
		// RFC 7009 style: the token may also arrive in the form body.
		raw = c.PostForm("token")
	}
	if raw == "" {
		response.Error(c, oautherr.WithDescription(oautherr.ErrInvalidRequest, "no token presented"))
		return
	}

	if err := h.service.Revoke(c.Request.Context(), raw); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"success": true})
}
