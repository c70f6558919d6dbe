package oautherr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an OAuth2 protocol error carrying the HTTP status it maps to.
// It serializes to the RFC 6749 error body shape.
type Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	Status      int    `json:"-"`
	Err         error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.Err)
	}
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Description)
	}
	return e.Code
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, description string) *Error {
	return &Error{Code: code, Status: status, Description: description}
}

// Wrap attaches an underlying cause to a protocol error. The cause is kept
// out of the serialized body.
func Wrap(err error, code string, status int, description string) *Error {
	return &Error{Code: code, Status: status, Description: description, Err: err}
}

// Errors for the OAuth2 taxonomy, RFC 6749 §4.1.2.1 / §5.2 and RFC 6750 §3.1.
var (
	ErrInvalidRequest       = New("invalid_request", http.StatusBadRequest, "the request is missing a required parameter or is otherwise malformed")
	ErrInvalidClient        = New("invalid_client", http.StatusUnauthorized, "client authentication failed")
	ErrInvalidGrant         = New("invalid_grant", http.StatusBadRequest, "the provided authorization grant is invalid, expired, or revoked")
	ErrUnsupportedGrantType = New("unsupported_grant_type", http.StatusBadRequest, "the authorization grant type is not supported")
	ErrAccessDenied         = New("access_denied", http.StatusForbidden, "the resource owner denied the request")
	ErrInvalidToken         = New("invalid_token", http.StatusUnauthorized, "the access token is invalid, expired, or revoked")
	ErrServerError          = New("server_error", http.StatusInternalServerError, "the authorization server encountered an unexpected condition")
)

// From normalises any error into an *Error. Unknown errors become
// server_error so internals never leak into responses.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrServerError.Code, ErrServerError.Status, ErrServerError.Description)
}

// WithDescription returns a copy of the error with the description replaced.
func WithDescription(err *Error, description string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if description != "" {
		clone.Description = description
	}
	return &clone
}
