package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/oauth-bridge/internal/models"
	"github.com/noah-isme/oauth-bridge/internal/service"
	"github.com/noah-isme/oauth-bridge/internal/upstream"
	"github.com/noah-isme/oauth-bridge/pkg/oautherr"
	"github.com/noah-isme/oauth-bridge/pkg/response"
)

type authorizeService interface {
	Authorize(ctx context.Context, req models.AuthorizeRequest, artifact upstream.SessionArtifact, originalURL string) (*models.AuthorizeResult, *service.LoginRedirect, error)
}

// AuthorizeHandler wires the authorization endpoint to the authorize service.
type AuthorizeHandler struct {
	service authorizeService
	issuer  string
}

// NewAuthorizeHandler creates a new handler.
func NewAuthorizeHandler(svc authorizeService, issuer string) *AuthorizeHandler {
	return &AuthorizeHandler{service: svc, issuer: strings.TrimRight(issuer, "/")}
}

// Authorize godoc
// @Summary OAuth2 authorization endpoint
// @Description Validates the request, resolves the user session and redirects back to the client with an authorization code
// @Tags OAuth2
// @Produce json
// @Param client_id query string true "Client identifier"
// @Param redirect_uri query string true "Client redirect URI"
// @Param response_type query string true "Must be \"code\""
// @Param scope query string false "Space-delimited scopes"
// @Param state query string false "Opaque client state, echoed back unmodified"
// @Success 302 {string} string "Redirect to redirect_uri with code, or to the login surface"
// @Failure 400 {object} oautherr.Error
// @Failure 401 {object} oautherr.Error
// @Failure 403 {object} oautherr.Error
// @Router /authorize [get]
func (h *AuthorizeHandler) Authorize(c *gin.Context) {
	var req models.AuthorizeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, oautherr.Wrap(err, oautherr.ErrInvalidRequest.Code, oautherr.ErrInvalidRequest.Status, "malformed authorization request"))
		return
	}

	artifact := upstream.ArtifactFromRequest(c.Request)
	originalURL := h.issuer + c.Request.URL.RequestURI()

	result, login, err := h.service.Authorize(c.Request.Context(), req, artifact, originalURL)
	if err != nil {
		response.Error(c, err)
		return
	}
	if login != nil {
		c.Redirect(http.StatusFound, login.URL)
		return
	}

	target, err := url.Parse(result.RedirectURI)
	if err != nil {
		response.Error(c, oautherr.Wrap(err, oautherr.ErrServerError.Code, oautherr.ErrServerError.Status, "invalid redirect target"))
		return
	}
	q := target.Query()
	q.Set("code", result.Code)
	if result.State != "" {
		q.Set("state", result.State)
	}
	target.RawQuery = q.Encode()

	c.Redirect(http.StatusFound, target.String())
}
