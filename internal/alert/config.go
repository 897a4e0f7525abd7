package alert

import (
	"fmt"
	"strings"
)

// Event names a webhook can subscribe to.
const (
	EventDeny         = "deny"
	EventReloaded     = "policy_reloaded"
	EventReloadFailed = "reload_failed"
)

// AlertConfig defines a webhook alert destination.
type AlertConfig struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // ["deny", "policy_reloaded", "reload_failed"]
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// AlertEvent is the payload sent to webhook endpoints.
type AlertEvent struct {
	Timestamp  string   `json:"timestamp"`
	Type       string   `json:"type"`
	Policy     string   `json:"policy"`
	Grant      string   `json:"grant,omitempty"`
	Args       []string `json:"args,omitempty"`
	Decision   string   `json:"decision,omitempty"`
	Reason     string   `json:"reason"`
	ParamsHash string   `json:"params_hash,omitempty"`
	PolicyHash string   `json:"policy_hash,omitempty"`
}

// ParseWebhook parses a --alert-webhook flag value of the form
// "url[,format[,event...]]". Events default to deny and reload_failed.
func ParseWebhook(s string) (AlertConfig, error) {
	parts := strings.Split(s, ",")
	cfg := AlertConfig{URL: strings.TrimSpace(parts[0]), Format: "generic"}
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		return AlertConfig{}, fmt.Errorf("alert webhook %q: URL must start with http:// or https://", s)
	}
	if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		cfg.Format = strings.TrimSpace(parts[1])
	}
	switch cfg.Format {
	case "generic", "slack", "pagerduty":
	default:
		return AlertConfig{}, fmt.Errorf("alert webhook %q: unknown format %q", s, cfg.Format)
	}
	for _, e := range parts[min(len(parts), 2):] {
		switch e = strings.TrimSpace(e); e {
		case EventDeny, EventReloaded, EventReloadFailed:
			cfg.Events = append(cfg.Events, e)
		default:
			return AlertConfig{}, fmt.Errorf("alert webhook %q: unknown event %q", s, e)
		}
	}
	if len(cfg.Events) == 0 {
		cfg.Events = []string{EventDeny, EventReloadFailed}
	}
	return cfg, nil
}
