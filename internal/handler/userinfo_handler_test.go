package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/oauth-bridge/internal/models"
	"github.com/noah-isme/oauth-bridge/internal/upstream"
	"github.com/noah-isme/oauth-bridge/pkg/oautherr"
)

type sessionServiceMock struct {
	info        *models.UserInfoResponse
	infoErr     error
	revokeErr   error
	gotToken    string
	gotArtifact upstream.SessionArtifact
}

func (m *sessionServiceMock) UserInfo(ctx context.Context, rawToken string, artifact upstream.SessionArtifact) (*models.UserInfoResponse, error) {
	m.gotToken = rawToken
	m.gotArtifact = artifact
	if m.infoErr != nil {
		return nil, m.infoErr
	}
	return m.info, nil
}

func (m *sessionServiceMock) Revoke(ctx context.Context, rawToken string) error {
	m.gotToken = rawToken
	return m.revokeErr
}

func TestUserInfoHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &sessionServiceMock{info: &models.UserInfoResponse{
		Sub:           "u1",
		Email:         "user@example.com",
		EmailVerified: true,
		Scope:         "openid email",
	}}
	handler := NewUserInfoHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/userinfo", nil)
	req.Header.Set("Authorization", "Bearer signed-jwt")
	req.AddCookie(&http.Cookie{Name: upstream.SessionCookieName, Value: "sess"})
	c.Request = req

	handler.UserInfo(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "signed-jwt", mock.gotToken)
	assert.Equal(t, "sess", mock.gotArtifact.Cookie)
	assert.Empty(t, mock.gotArtifact.Bearer, "the access token must not be forwarded upstream")

	var body models.UserInfoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "u1", body.Sub)
	assert.Equal(t, "user@example.com", body.Email)
	assert.True(t, body.EmailVerified)
}

func TestUserInfoHandlerMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewUserInfoHandler(&sessionServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/userinfo", nil)
	c.Request = req

	handler.UserInfo(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "invalid_token", body["error"])
}

func TestUserInfoHandlerMalformedHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewUserInfoHandler(&sessionServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/userinfo", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	c.Request = req

	handler.UserInfo(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserInfoHandlerRevokedToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &sessionServiceMock{infoErr: oautherr.WithDescription(oautherr.ErrInvalidToken, "token has been revoked")}
	handler := NewUserInfoHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/userinfo", nil)
	req.Header.Set("Authorization", "Bearer signed-jwt")
	c.Request = req

	handler.UserInfo(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "token has been revoked", body["error_description"])
}

func TestRevokeHandlerBearer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &sessionServiceMock{}
	handler := NewUserInfoHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/revoke", nil)
	req.Header.Set("Authorization", "Bearer signed-jwt")
	c.Request = req

	handler.Revoke(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "signed-jwt", mock.gotToken)

	var body map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body["success"])
}

func TestRevokeHandlerFormToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &sessionServiceMock{}
	handler := NewUserInfoHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	form := url.Values{"token": {"form-jwt"}}
	req, _ := http.NewRequest(http.MethodPost, "/revoke", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.Request = req

	handler.Revoke(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "form-jwt", mock.gotToken)
}

func TestRevokeHandlerNoToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewUserInfoHandler(&sessionServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/revoke", nil)
	c.Request = req

	handler.Revoke(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "invalid_request", body["error"])
}
