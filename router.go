package lirc

import (
	"context"
	"path"
)

type RemoteHandlers map[string]ButtonHandlers
type ButtonHandlers map[string]ButtonHandler
type ButtonHandler func(ButtonPress)

// RouteEvents routes events to the appropriate handler until ctx is canceled
// or events is closed. Keys are glob patterns; release events are routed by
// the button name including its suffix, e.g. "KEY_POWER_UP".
func RouteEvents(ctx context.Context, events <-chan ButtonPress, handlers RemoteHandlers) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-events:
			if !ok {
				return nil
			}
			handlers.route(event)
		}
	}
}

func (handlers RemoteHandlers) route(event ButtonPress) {
	button := event.ButtonName + event.Suffix

	// Check for exact match
	if h := handlers[event.RemoteControlName][button]; h != nil {
		h(event)
		return
	}

	// Check for pattern matches
	for remote, buttonHandlers := range handlers {
		if matched, _ := path.Match(remote, event.RemoteControlName); !matched {
			continue
		}
		for pattern, h := range buttonHandlers {
			if matched, _ := path.Match(pattern, button); matched {
				h(event)
			}
		}
	}
}
