package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "OAuth Bridge",
        "description": "Bridges the session-based identity provider to OAuth2 authorization-code-grant clients",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http",
        "https"
    ],
    "tags": [
        {"name": "OAuth2", "description": "Authorization code grant endpoints"},
        {"name": "Discovery", "description": "Provider metadata"}
    ],
    "paths": {
        "/authorize": {
            "get": {
                "tags": ["OAuth2"],
                "summary": "Authorization endpoint",
                "parameters": [
                    {"name": "client_id", "in": "query", "type": "string", "required": true},
                    {"name": "redirect_uri", "in": "query", "type": "string", "required": true},
                    {"name": "response_type", "in": "query", "type": "string", "required": true},
                    {"name": "scope", "in": "query", "type": "string"},
                    {"name": "state", "in": "query", "type": "string"}
                ],
                "responses": {
                    "302": {"description": "Redirect to redirect_uri with code, or to the login surface"},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/OAuthError"}},
                    "401": {"description": "Unknown client", "schema": {"$ref": "#/definitions/OAuthError"}},
                    "403": {"description": "Access denied", "schema": {"$ref": "#/definitions/OAuthError"}}
                }
            }
        },
        "/token": {
            "post": {
                "tags": ["OAuth2"],
                "summary": "Token endpoint",
                "consumes": ["application/x-www-form-urlencoded"],
                "parameters": [
                    {"name": "grant_type", "in": "formData", "type": "string", "required": true},
                    {"name": "code", "in": "formData", "type": "string"},
                    {"name": "redirect_uri", "in": "formData", "type": "string"},
                    {"name": "refresh_token", "in": "formData", "type": "string"},
                    {"name": "client_id", "in": "formData", "type": "string", "required": true},
                    {"name": "client_secret", "in": "formData", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Token pair", "schema": {"$ref": "#/definitions/TokenResponse"}},
                    "400": {"description": "Invalid grant", "schema": {"$ref": "#/definitions/OAuthError"}},
                    "401": {"description": "Invalid client", "schema": {"$ref": "#/definitions/OAuthError"}}
                }
            }
        },
        "/userinfo": {
            "get": {
                "tags": ["OAuth2"],
                "summary": "UserInfo endpoint",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Subject claims", "schema": {"$ref": "#/definitions/UserInfo"}},
                    "401": {"description": "Invalid token", "schema": {"$ref": "#/definitions/OAuthError"}}
                }
            }
        },
        "/revoke": {
            "post": {
                "tags": ["OAuth2"],
                "summary": "Revocation endpoint",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Revoked"},
                    "400": {"description": "No token presented", "schema": {"$ref": "#/definitions/OAuthError"}}
                }
            }
        },
        "/.well-known/openid-configuration": {
            "get": {
                "tags": ["Discovery"],
                "summary": "Provider metadata",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/jwks": {
            "get": {
                "tags": ["Discovery"],
                "summary": "Signing key metadata",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "definitions": {
        "TokenResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "token_type": {"type": "string"},
                "expires_in": {"type": "integer"},
                "refresh_token": {"type": "string"},
                "scope": {"type": "string"}
            }
        },
        "UserInfo": {
            "type": "object",
            "properties": {
                "sub": {"type": "string"},
                "email": {"type": "string"},
                "email_verified": {"type": "boolean"},
                "scope": {"type": "string"}
            }
        },
        "OAuthError": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "error_description": {"type": "string"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
