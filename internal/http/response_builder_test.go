package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"txreport/internal/core"
)

func TestJSONResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusAccepted).
		Header("X-Test", "1").
		JSON(map[string]int{"count": 3}).
		Write(w)

	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if w.Header().Get("X-Test") != "1" {
		t.Error("custom header missing")
	}
	if w.Body.String() != "{\"count\":3}\n" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_Text(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Text(seedSucceededText).Write(w)
	if w.Body.String() != seedSucceededText {
		t.Errorf("body = %q", w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestJSONResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().JSON(make(chan int)).Write(w)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
}

func TestBadRequestError(t *testing.T) {
	w := httptest.NewRecorder()
	BadRequestError("month", "invalid month").Write(w)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
	if w.Body.String() != "{\"error\":\"invalid month\",\"field\":\"month\"}\n" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestRequireMethod(t *testing.T) {
	if RequireGET(httptest.NewRequest(http.MethodGet, "/", nil)) != nil {
		t.Error("GET must be allowed")
	}
	if RequireGET(httptest.NewRequest(http.MethodHead, "/", nil)) != nil {
		t.Error("HEAD must be allowed")
	}
	resp := RequireGET(httptest.NewRequest(http.MethodDelete, "/", nil))
	if resp == nil {
		t.Fatal("DELETE must be rejected")
	}
	w := httptest.NewRecorder()
	resp.Write(w)
	if w.Code != http.StatusMethodNotAllowed || w.Header().Get("Allow") != "GET, HEAD" {
		t.Errorf("status = %d, Allow = %q", w.Code, w.Header().Get("Allow"))
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&ParamError{Field: "page", Err: core.ErrInvalidPage}, http.StatusBadRequest},
		{fmt.Errorf("statistics: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{context.Canceled, http.StatusServiceUnavailable},
		{core.ErrSourceUnavailable, http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, _ := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
