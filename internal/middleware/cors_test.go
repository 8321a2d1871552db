package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSMiddleware_SetsHeaders(t *testing.T) {
	mw := NewCORSMiddleware("https://shop.example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)

	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "https://shop.example.com" {
		t.Errorf("Allow-Origin = %q, want %q", origin, "https://shop.example.com")
	}
	if creds := rec.Header().Get("Access-Control-Allow-Credentials"); creds != "true" {
		t.Errorf("Allow-Credentials = %q, want %q", creds, "true")
	}
	if headers := rec.Header().Get("Access-Control-Allow-Headers"); headers != "Content-Type, X-CSRF-Token" {
		t.Errorf("Allow-Headers = %q, want %q", headers, "Content-Type, X-CSRF-Token")
	}
}

func TestCORSMiddleware_Preflight_Returns204(t *testing.T) {
	mw := NewCORSMiddleware("https://shop.example.com")

	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached for preflight")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}
