package apiresp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteOKEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/homes", nil)

	WriteOK(rr, req, http.StatusOK, map[string]string{"id": "h1"})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var env Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if !env.OK || env.Error != nil {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestWriteErrorCodes(t *testing.T) {
	cases := []struct {
		status int
		code   string
	}{
		{http.StatusBadRequest, "invalid_request"},
		{http.StatusUnauthorized, "unauthorized"},
		{http.StatusForbidden, "forbidden"},
		{http.StatusNotFound, "not_found"},
		{http.StatusConflict, "conflict"},
		{http.StatusTooManyRequests, "rate_limited"},
		{http.StatusInternalServerError, "internal_error"},
		{http.StatusBadGateway, "error"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", nil)

		WriteError(rr, req, tc.status, "")

		var env Envelope
		if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if env.OK || env.Error == nil {
			t.Fatalf("status %d: unexpected envelope %+v", tc.status, env)
		}
		if env.Error.Code != tc.code {
			t.Fatalf("status %d: code = %q, want %q", tc.status, env.Error.Code, tc.code)
		}
		if env.Error.Message != http.StatusText(tc.status) {
			t.Fatalf("status %d: blank message must fall back to status text, got %q", tc.status, env.Error.Message)
		}
	}
}
