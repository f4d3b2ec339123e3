package httputil

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, 201, map[string]int{"count": 3})

	if rec.Code != 201 {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var got map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if got["count"] != 3 {
		t.Errorf("body = %v", got)
	}
}

func TestWriteJSONOK(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONOK(rec, []int{1, 2})
	if rec.Code != 200 {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestWriteJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONError(rec, 422, "bad tuning")

	if rec.Code != 422 {
		t.Errorf("status = %d, want 422", rec.Code)
	}
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if got["error"] != "bad tuning" {
		t.Errorf("error = %q", got["error"])
	}
}

func TestStatusHelpers(t *testing.T) {
	cases := []struct {
		name string
		fn   func(*httptest.ResponseRecorder)
		want int
	}{
		{"method not allowed", func(r *httptest.ResponseRecorder) { MethodNotAllowed(r) }, 405},
		{"bad request", func(r *httptest.ResponseRecorder) { BadRequest(r, "nope") }, 400},
		{"not found", func(r *httptest.ResponseRecorder) { NotFound(r, "gone") }, 404},
		{"internal", func(r *httptest.ResponseRecorder) { InternalServerError(r, "boom") }, 500},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		tc.fn(rec)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
}
