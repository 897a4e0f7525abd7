package alert

import (
	"sync"

	"github.com/rs/zerolog"
)

// Dispatcher fans out alert events to matching webhook configurations.
type Dispatcher struct {
	configs []AlertConfig
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher from webhook configurations.
// Returns nil if configs is empty; a nil Dispatcher drops every event.
func NewDispatcher(configs []AlertConfig, log zerolog.Logger) *Dispatcher {
	if len(configs) == 0 {
		return nil
	}
	return &Dispatcher{configs: configs, log: log.With().Str("component", "alert").Logger()}
}

// Dispatch sends the event to all webhooks whose Events list contains
// event.Type. Sends run in the background; failures are logged.
func (d *Dispatcher) Dispatch(event AlertEvent) {
	if d == nil {
		return
	}
	for _, cfg := range d.configs {
		if !matches(cfg.Events, event) {
			continue
		}
		d.wg.Add(1)
		go func(cfg AlertConfig) {
			defer d.wg.Done()
			if err := Send(cfg, event); err != nil {
				d.log.Warn().Err(err).Str("url", cfg.URL).Str("type", event.Type).Msg("alert not delivered")
			}
		}(cfg)
	}
}

// Wait blocks until every in-flight send has finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

func matches(events []string, event AlertEvent) bool {
	for _, e := range events {
		if e == event.Type {
			return true
		}
	}
	return false
}
