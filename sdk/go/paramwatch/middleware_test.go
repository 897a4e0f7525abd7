package paramwatch

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func paymentURL(args ...string) string {
	q := url.Values{}
	for _, a := range args {
		q.Add("arg", a)
	}
	return "/payments?" + q.Encode()
}

func TestMiddlewareAllows(t *testing.T) {
	c := newTestClient(t)
	handler := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest("POST", paymentURL(dai, recipient, "5"), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("expected body 'ok', got %q", rec.Body.String())
	}
}

func TestMiddlewareBlocksDenied(t *testing.T) {
	c := newTestClient(t)
	handler := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be called")
	}))

	req := httptest.NewRequest("POST", paymentURL(dai, recipient, "200_000e18"), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode JSON body: %v", err)
	}
	if blocked, ok := body["blocked"].(bool); !ok || !blocked {
		t.Error("expected blocked=true in response")
	}
	if body["decision"] != "deny" {
		t.Errorf("expected decision deny, got %v", body["decision"])
	}
	if _, ok := body["reason"].(string); !ok {
		t.Error("expected reason string in response")
	}
}

func TestMiddlewareBadEnv(t *testing.T) {
	c := newTestClient(t)
	handler := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be called")
	}))

	req := httptest.NewRequest("GET", paymentURL(dai, recipient, "1")+"&block=soon", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCallFromRequestEnv(t *testing.T) {
	req := httptest.NewRequest("GET", "/x?arg=1&arg=2&timestamp=42&oracle=allow", nil)
	call, err := callFromRequest(req)
	if err != nil {
		t.Fatalf("callFromRequest: %v", err)
	}
	if len(call.Args) != 2 || call.Args[1] != "2" {
		t.Errorf("expected args [1 2], got %v", call.Args)
	}
	if call.Env == nil || call.Env.Timestamp != 42 || call.Env.Oracle != "allow" {
		t.Errorf("unexpected env %+v", call.Env)
	}

	plain, _ := callFromRequest(httptest.NewRequest("GET", "/x?arg=1", nil))
	if plain.Env != nil {
		t.Error("expected no env override without env query parameters")
	}
}
