package lirc

import (
	"context"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestRouteEvents(t *testing.T) {
	var got []string
	record := func(name string) ButtonHandler {
		return func(ButtonPress) { got = append(got, name) }
	}

	handlers := RemoteHandlers{
		"TV": ButtonHandlers{
			"POWER":    record("tv power"),
			"POWER_UP": record("tv power up"),
		},
		"VCR*": ButtonHandlers{
			"KEY_*": record("vcr key"),
		},
	}

	events := make(chan ButtonPress, 4)
	events <- ButtonPress{ButtonName: "POWER", RemoteControlName: "TV"}
	events <- ButtonPress{ButtonName: "POWER", Suffix: "_UP", RemoteControlName: "TV"}
	events <- ButtonPress{ButtonName: "KEY_PLAY", RemoteControlName: "VCR2"}
	events <- ButtonPress{ButtonName: "MUTE", RemoteControlName: "TV"}
	close(events)

	err := RouteEvents(context.Background(), events, handlers)
	assert.NoError(t, err)
	assert.Equal(t, []string{"tv power", "tv power up", "vcr key"}, got)
}

func TestRouteEventsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RouteEvents(ctx, make(chan ButtonPress), nil)
	assert.IsError(t, err, context.Canceled)
}
