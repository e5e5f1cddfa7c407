package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sporehut/sporehut-core/internal/device"
)

func TestClient_ReplyTimeout(t *testing.T) {
	// No owner is draining the queue.
	q := NewQueue(4, 10*time.Millisecond)
	c := NewClient(q, 30*time.Millisecond)

	_, err := c.GetDeviceConfigs(context.Background())
	if !errors.Is(err, ErrReplyTimeout) {
		t.Errorf("GetDeviceConfigs() error = %v, want ErrReplyTimeout", err)
	}
}

func TestClient_ChannelFull(t *testing.T) {
	q := NewQueue(1, 10*time.Millisecond)
	c := NewClient(q, time.Second)
	ctx := context.Background()

	if err := c.Enable(ctx, "FOGGER"); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}

	_, err := c.Toggle(ctx, "FOGGER")
	if !errors.Is(err, ErrChannelFull) {
		t.Errorf("Toggle() on full queue error = %v, want ErrChannelFull", err)
	}
	if err := c.Disable(ctx, "FOGGER"); !errors.Is(err, ErrChannelFull) {
		t.Errorf("Disable() on full queue error = %v, want ErrChannelFull", err)
	}
}

func TestClient_ContextCancelledWhileWaiting(t *testing.T) {
	q := NewQueue(4, 10*time.Millisecond)
	c := NewClient(q, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Toggle(ctx, "FOGGER")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Toggle() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestClient_WithSource(t *testing.T) {
	q := NewQueue(4, 10*time.Millisecond)
	base := NewClient(q, time.Second)
	api := base.WithSource("api")

	if base.Source() != "client" {
		t.Errorf("base Source() = %q, want client", base.Source())
	}
	if api.Source() != "api" {
		t.Errorf("derived Source() = %q, want api", api.Source())
	}

	if err := api.Enable(context.Background(), "FOGGER"); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	env := <-q.C()
	if env.Source != "api" || env.Reply != nil {
		t.Errorf("envelope = %+v, want fire-and-forget from api", env)
	}
	if cmd, ok := env.Command.(EnableDevice); !ok || cmd.DeviceID != "FOGGER" {
		t.Errorf("command = %#v, want EnableDevice{FOGGER}", env.Command)
	}
}

func TestSetDevice(t *testing.T) {
	if cmd := SetDevice("FOGGER", device.StateOn); cmd != (EnableDevice{DeviceID: "FOGGER"}) {
		t.Errorf("SetDevice(on) = %#v", cmd)
	}
	if cmd := SetDevice("FOGGER", device.StateOff); cmd != (DisableDevice{DeviceID: "FOGGER"}) {
		t.Errorf("SetDevice(off) = %#v", cmd)
	}
}
