// Package http provides the JSON API server and its handlers.
//
// This file implements the Builder Pattern for constructing JSON responses,
// so every handler writes status, headers and body the same way.

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"timesplit/internal/core"
)

// Response messages shared by the handlers.
const (
	MsgInvalidData      = "Invalid data"
	MsgEntryNotFound    = "Time entry not found"
	MsgEntryDeleted     = "Time entry deleted successfully"
	MsgMethodNotAllowed = "Method not allowed"
	MsgNotFound         = "Not found"
	MsgTooManyRequests  = "Too many requests"

	MsgFetchEntriesFailed   = "Failed to fetch time entries"
	MsgCreateEntryFailed    = "Failed to create time entry"
	MsgUpdateEntryFailed    = "Failed to update time entry"
	MsgDeleteEntryFailed    = "Failed to delete time entry"
	MsgFetchSettingsFailed  = "Failed to fetch settings"
	MsgUpdateSettingsFailed = "Failed to update settings"
	MsgSummaryFailed        = "Failed to compute summary"
)

// MessageBody is the shape of every error and acknowledgement response.
type MessageBody struct {
	Message string            `json:"message"`
	Errors  []core.FieldError `json:"errors,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the JSON body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Message sets a {"message": ...} body.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	return b.Body(MessageBody{Message: msg})
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response body", "error", err)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
}

// OK creates a 200 response carrying v.
func OK(v any) *JSONResponseBuilder {
	return NewJSONResponse().Body(v)
}

// Created creates a 201 response carrying v.
func Created(v any) *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusCreated).Body(v)
}

// ErrorResponse creates a standard {"message": ...} error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Message(message)
}

// ValidationErrorResponse creates a 400 response listing every field problem.
func ValidationErrorResponse(ve *core.ValidationError) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusBadRequest).
		Body(MessageBody{Message: MsgInvalidData, Errors: ve.Fields})
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, MsgMethodNotAllowed).
		Header("Allow", allowedMethods)
}

// TooManyRequestsError creates a 429 response asking the client to wait a minute.
func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, MsgTooManyRequests).
		Header("Retry-After", "60")
}
