package alert

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatPayload builds the webhook body for the given format.
func FormatPayload(format string, event AlertEvent) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(event)
	case "pagerduty":
		return formatPagerDuty(event)
	default:
		return formatGeneric(event)
	}
}

func formatGeneric(event AlertEvent) ([]byte, error) {
	return json.Marshal(event)
}

func formatSlack(event AlertEvent) ([]byte, error) {
	fields := []any{
		map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Policy:* %s", event.Policy)},
		map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Reason:* %s", event.Reason)},
	}
	if len(event.Args) > 0 {
		fields = append(fields, map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Args:* %s", strings.Join(event.Args, ", "))})
	}
	if event.ParamsHash != "" {
		fields = append(fields, map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Params hash:* %s", event.ParamsHash)})
	}

	payload := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": fmt.Sprintf("paramwatch: %s", event.Type),
				},
			},
			map[string]any{
				"type":   "section",
				"fields": fields,
			},
		},
	}
	return json.Marshal(payload)
}

func formatPagerDuty(event AlertEvent) ([]byte, error) {
	payload := map[string]any{
		"event_action": "trigger",
		"payload": map[string]any{
			"summary":  fmt.Sprintf("paramwatch %s: %s", event.Type, event.Policy),
			"severity": severityFor(event.Type),
			"source":   "paramwatch",
			"custom_details": map[string]any{
				"grant":       event.Grant,
				"args":        event.Args,
				"reason":      event.Reason,
				"params_hash": event.ParamsHash,
				"policy_hash": event.PolicyHash,
			},
		},
	}
	return json.Marshal(payload)
}

func severityFor(eventType string) string {
	switch eventType {
	case EventReloadFailed:
		return "critical"
	case EventDeny:
		return "warning"
	default:
		return "info"
	}
}
