package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/ppiankov/paramwatch/internal/alert"
	"github.com/ppiankov/paramwatch/internal/rpc"
)

type webhookSink struct {
	mu     sync.Mutex
	events []alert.AlertEvent
	srv    *httptest.Server
}

func newWebhookSink(t *testing.T) *webhookSink {
	t.Helper()
	sink := &webhookSink{}
	sink.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev alert.AlertEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		sink.mu.Lock()
		sink.events = append(sink.events, ev)
		sink.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(sink.srv.Close)
	return sink
}

func (s *webhookSink) received() []alert.AlertEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]alert.AlertEvent(nil), s.events...)
}

func TestDenyRaisesAlert(t *testing.T) {
	sink := newWebhookSink(t)
	srv := newTestServer(t, Config{
		PolicyPath: writeTempFile(t, "policy.yaml", limitPolicy),
		Alerts:     []alert.AlertConfig{{URL: sink.srv.URL, Format: "generic", Events: []string{alert.EventDeny}}},
	})
	client, cleanup := testServer(t, srv)

	evaluate(t, client, rpc.EvaluateRequest{Args: []string{token, receiver, "1"}})
	evaluate(t, client, rpc.EvaluateRequest{Args: []string{token, receiver, "5000"}})
	cleanup()

	events := sink.received()
	if len(events) != 1 {
		t.Fatalf("expected 1 deny alert, got %d", len(events))
	}
	ev := events[0]
	if ev.Type != alert.EventDeny || ev.Policy != "test-limit" {
		t.Errorf("unexpected event %+v", ev)
	}
	if len(ev.Args) != 3 || ev.Args[2] != "5000" {
		t.Errorf("expected denied args in alert, got %v", ev.Args)
	}
	if ev.ParamsHash == "" || ev.PolicyHash == "" {
		t.Error("expected params and policy hashes in alert")
	}
}

func TestReloadRaisesAlerts(t *testing.T) {
	sink := newWebhookSink(t)
	policyPath := writeTempFile(t, "policy.yaml", limitPolicy)
	srv := newTestServer(t, Config{
		PolicyPath: policyPath,
		Alerts: []alert.AlertConfig{{
			URL:    sink.srv.URL,
			Format: "generic",
			Events: []string{alert.EventReloaded, alert.EventReloadFailed},
		}},
	})

	if err := srv.ReloadPolicy(); err != nil {
		t.Fatalf("ReloadPolicy: %v", err)
	}
	if err := os.WriteFile(policyPath, []byte("name: [unterminated"), 0644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	if err := srv.ReloadPolicy(); err == nil {
		t.Fatal("expected reload error")
	}
	srv.Close()

	types := make(map[string]int)
	for _, ev := range sink.received() {
		types[ev.Type]++
	}
	if types[alert.EventReloaded] != 1 || types[alert.EventReloadFailed] != 1 {
		t.Errorf("expected one reloaded and one failed alert, got %v", types)
	}
}
