package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func countingServer(t *testing.T, called *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDispatchMatchesEvents(t *testing.T) {
	var called atomic.Int32
	srv := countingServer(t, &called)

	d := NewDispatcher([]AlertConfig{
		{URL: srv.URL, Format: "generic", Events: []string{EventDeny}},
	}, zerolog.Nop())

	d.Dispatch(AlertEvent{Type: EventDeny, Decision: "deny", Policy: "finance", Reason: "arg2 <= 1000"})
	d.Wait()

	if called.Load() != 1 {
		t.Errorf("expected 1 call, got %d", called.Load())
	}
}

func TestDispatchSkipsNonMatching(t *testing.T) {
	var called atomic.Int32
	srv := countingServer(t, &called)

	d := NewDispatcher([]AlertConfig{
		{URL: srv.URL, Format: "generic", Events: []string{EventDeny}},
	}, zerolog.Nop())

	d.Dispatch(AlertEvent{Type: EventReloaded, Policy: "finance"})
	d.Wait()

	if called.Load() != 0 {
		t.Errorf("expected 0 calls for non-matching event, got %d", called.Load())
	}
}

func TestDispatchMultipleWebhooks(t *testing.T) {
	var called atomic.Int32
	srv1 := countingServer(t, &called)
	srv2 := countingServer(t, &called)

	d := NewDispatcher([]AlertConfig{
		{URL: srv1.URL, Format: "generic", Events: []string{EventDeny}},
		{URL: srv2.URL, Format: "slack", Events: []string{EventDeny, EventReloadFailed}},
	}, zerolog.Nop())

	d.Dispatch(AlertEvent{Type: EventDeny, Decision: "deny"})
	d.Wait()

	if called.Load() != 2 {
		t.Errorf("expected 2 calls (both webhooks match), got %d", called.Load())
	}
}

func TestNilDispatcherDrops(t *testing.T) {
	var d *Dispatcher
	d.Dispatch(AlertEvent{Type: EventDeny})
	d.Wait()
}

func fastRetries(t *testing.T) {
	t.Helper()
	old := retryBackoff
	retryBackoff = 10 * time.Millisecond
	t.Cleanup(func() { retryBackoff = old })
}

func TestRetryOnServerError(t *testing.T) {
	fastRetries(t)
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := Send(AlertConfig{URL: srv.URL, Format: "generic"}, AlertEvent{Type: EventDeny})
	if err != nil {
		t.Errorf("expected success after retries, got: %v", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := Send(AlertConfig{URL: srv.URL, Format: "generic"}, AlertEvent{Type: EventDeny})
	if err == nil {
		t.Error("expected error on 400, got nil")
	}
	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt (no retry on 4xx), got %d", attempts.Load())
	}
}

func TestSendContextCancelledStopsRetrying(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := SendContext(ctx, AlertConfig{URL: srv.URL}, AlertEvent{Type: EventDeny})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if attempts.Load() > 1 {
		t.Errorf("expected at most 1 attempt after cancel, got %d", attempts.Load())
	}
}

func TestHeadersForwarded(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := AlertConfig{URL: srv.URL, Headers: map[string]string{"Authorization": "Bearer x"}}
	if err := Send(cfg, AlertEvent{Type: EventDeny}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.Load() != "Bearer x" {
		t.Errorf("expected Authorization header, got %v", got.Load())
	}
}

func TestFormatGenericJSON(t *testing.T) {
	event := AlertEvent{
		Timestamp:  "2025-01-15T14:00:00.000Z",
		Type:       EventDeny,
		Policy:     "finance-payment-limits",
		Args:       []string{"0x6B175474E89094C44Da98b954EedeAC495271d0F", "0x01", "1"},
		Decision:   "deny",
		Reason:     "arg2 <= 100000",
		ParamsHash: "0xabc",
	}

	data, err := FormatPayload("generic", event)
	if err != nil {
		t.Fatal(err)
	}

	var parsed AlertEvent
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("generic format is not valid JSON: %v", err)
	}
	if parsed.ParamsHash != "0xabc" {
		t.Errorf("expected params_hash 0xabc, got %s", parsed.ParamsHash)
	}
	if len(parsed.Args) != 3 {
		t.Errorf("expected 3 args, got %d", len(parsed.Args))
	}
}

func TestFormatSlackBlockKit(t *testing.T) {
	event := AlertEvent{
		Type:       EventDeny,
		Policy:     "finance-payment-limits",
		Args:       []string{"1", "2"},
		Reason:     "arg2 <= 100000",
		ParamsHash: "0xabc",
	}

	data, err := FormatPayload("slack", event)
	if err != nil {
		t.Fatal(err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("slack format is not valid JSON: %v", err)
	}

	blocks, ok := parsed["blocks"].([]any)
	if !ok {
		t.Fatal("expected blocks array in slack payload")
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}

	header, _ := blocks[0].(map[string]any)
	if header["type"] != "header" {
		t.Errorf("expected header block, got %s", header["type"])
	}

	section, _ := blocks[1].(map[string]any)
	fields, ok := section["fields"].([]any)
	if !ok || len(fields) != 4 {
		t.Errorf("expected 4 fields in section, got %v", fields)
	}
}

func TestFormatPagerDutySeverity(t *testing.T) {
	cases := map[string]string{
		EventReloadFailed: "critical",
		EventDeny:         "warning",
		EventReloaded:     "info",
	}
	for eventType, want := range cases {
		data, err := FormatPayload("pagerduty", AlertEvent{Type: eventType, Policy: "p"})
		if err != nil {
			t.Fatal(err)
		}
		var parsed map[string]any
		if err := json.Unmarshal(data, &parsed); err != nil {
			t.Fatalf("pagerduty format is not valid JSON: %v", err)
		}
		if parsed["event_action"] != "trigger" {
			t.Errorf("expected event_action trigger, got %v", parsed["event_action"])
		}
		payload, ok := parsed["payload"].(map[string]any)
		if !ok {
			t.Fatal("expected payload object")
		}
		if payload["severity"] != want {
			t.Errorf("%s: expected severity %s, got %v", eventType, want, payload["severity"])
		}
		if payload["source"] != "paramwatch" {
			t.Errorf("expected source paramwatch, got %v", payload["source"])
		}
	}
}

func TestNewDispatcherNilOnEmpty(t *testing.T) {
	if d := NewDispatcher(nil, zerolog.Nop()); d != nil {
		t.Error("expected nil dispatcher for empty configs")
	}
	if d := NewDispatcher([]AlertConfig{}, zerolog.Nop()); d != nil {
		t.Error("expected nil dispatcher for zero-length configs")
	}
}

func TestParseWebhook(t *testing.T) {
	cfg, err := ParseWebhook("https://hooks.example.com/x")
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if cfg.Format != "generic" || len(cfg.Events) != 2 {
		t.Errorf("expected generic with default events, got %+v", cfg)
	}

	cfg, err = ParseWebhook("https://hooks.slack.com/x,slack,policy_reloaded")
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if cfg.Format != "slack" || len(cfg.Events) != 1 || cfg.Events[0] != EventReloaded {
		t.Errorf("unexpected config %+v", cfg)
	}

	for _, bad := range []string{"hooks.example.com", "https://x,teams", "https://x,generic,allow"} {
		if _, err := ParseWebhook(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
