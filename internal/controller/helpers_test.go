package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sporehut/sporehut-core/internal/device"
	"github.com/sporehut/sporehut-core/internal/hal"
)

// ─── Mock Dependencies ─────────────────────────────────────────────

// recordingObserver collects events synchronously.
type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingObserver) Observe(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingObserver) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ─── Helpers ────────────────────────────────────────────────────────

const (
	foggerPin = 17
	fanPin    = 27
)

func testRegistry(t *testing.T) *device.Registry {
	t.Helper()
	r, err := device.NewRegistry([]device.Record{
		{ID: "FOGGER_FAN", Name: "Fogger Fan", Pin: fanPin},
		{ID: "FOGGER", Name: "Fogger", Pin: foggerPin},
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return r
}

type harness struct {
	owner    *Owner
	queue    *Queue
	client   *Client
	actuator *hal.MemoryActuator
	observer *recordingObserver
	cancel   context.CancelFunc
	done     chan error
}

// startOwner runs an owner over the fogger pair until the test ends.
func startOwner(t *testing.T, capacity int) *harness {
	t.Helper()

	h := &harness{
		queue:    NewQueue(capacity, DefaultSendTimeout),
		actuator: hal.NewMemoryActuator(foggerPin, fanPin),
		observer: &recordingObserver{},
		done:     make(chan error, 1),
	}
	h.owner = NewOwner(testRegistry(t), h.actuator, h.queue)
	h.owner.AddObserver(h.observer)
	h.client = NewClient(h.queue, time.Second).WithSource("test")

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.owner.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Error("owner did not stop")
		}
	})

	return h
}

// stateOf fetches the current state of id through the client.
func stateOf(t *testing.T, c *Client, id string) device.State {
	t.Helper()
	devices, err := c.GetDeviceConfigs(context.Background())
	if err != nil {
		t.Fatalf("GetDeviceConfigs() error = %v", err)
	}
	for _, d := range devices {
		if d.ID == id {
			return d.State
		}
	}
	t.Fatalf("device %s missing from snapshot", id)
	return ""
}
