package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"txreport/internal/core"
	applog "txreport/internal/log"
)

// JSONResponseBuilder assembles a response: status, headers and a body that
// is either JSON or plain text.
type JSONResponseBuilder struct {
	statusCode  int
	headers     map[string]string
	body        []byte
	contentType string
	err         error
}

// errorBody is the payload of every error response.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON encodes v as the body. An encoding failure turns the response into
// a 500.
func (b *JSONResponseBuilder) JSON(v any) *JSONResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		b.err = err
		return b
	}
	b.body = append(data, '\n')
	b.contentType = "application/json; charset=utf-8"
	return b
}

// Text sets a plain text body.
func (b *JSONResponseBuilder) Text(s string) *JSONResponseBuilder {
	b.body = []byte(s)
	b.contentType = "text/plain; charset=utf-8"
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	if b.err != nil {
		slog.Error("Response encoding failed", applog.FieldError, b.err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.contentType != "" {
		w.Header().Set("Content-Type", b.contentType)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// OK writes v as a 200 JSON response.
func OK(w http.ResponseWriter, v any) {
	NewJSONResponse().JSON(v).Write(w)
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).JSON(errorBody{Error: message})
}

// BadRequestError names the offending query parameter.
func BadRequestError(field, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusBadRequest).JSON(errorBody{Error: message, Field: field})
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Header("Allow", allowedMethods)
}

// RequireMethod returns an error response when the method is not allowed.
func RequireMethod(r *http.Request, methods ...string) *JSONResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequireGET allows GET and HEAD.
func RequireGET(r *http.Request) *JSONResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}

// errorStatus maps a failure to its response status.
func errorStatus(err error) (int, string) {
	var pe *ParamError
	switch {
	case errors.As(err, &pe):
		return http.StatusBadRequest, applog.ErrorTypeValidation
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, applog.ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, applog.ErrorTypeTimeout
	case errors.Is(err, core.ErrSourceUnavailable):
		return http.StatusBadGateway, applog.ErrorTypeUnavailable
	default:
		return http.StatusInternalServerError, applog.ErrorTypeDatabase
	}
}

// failure logs err and builds the matching error response.
func (s *Server) failure(ctx context.Context, op string, err error, fields applog.LogFields) *JSONResponseBuilder {
	var pe *ParamError
	if errors.As(err, &pe) {
		return BadRequestError(pe.Field, pe.Error())
	}

	status, errType := errorStatus(err)
	s.logs.LogError(ctx, "Request failed", err, errType, applog.ComponentHTTP, op, fields)

	switch status {
	case http.StatusGatewayTimeout:
		return ErrorResponse(status, "request timed out")
	case http.StatusServiceUnavailable:
		return ErrorResponse(status, "request cancelled")
	default:
		return ErrorResponse(status, "failed to compute "+op)
	}
}
