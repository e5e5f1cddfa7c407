package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sporehut/sporehut-core/internal/device"
	"github.com/sporehut/sporehut-core/internal/infrastructure/metrics"
)

// DefaultReplyTimeout bounds how long a request waits for the owner.
const DefaultReplyTimeout = 2 * time.Second

// Client is the facade presentation code and triggers use to talk to the
// owner. It is safe for concurrent use.
type Client struct {
	queue        *Queue
	replyTimeout time.Duration
	source       string
	metrics      *metrics.Metrics
}

// NewClient creates a client sending through queue.
// A non-positive replyTimeout selects DefaultReplyTimeout.
func NewClient(queue *Queue, replyTimeout time.Duration) *Client {
	if replyTimeout <= 0 {
		replyTimeout = DefaultReplyTimeout
	}
	return &Client{
		queue:        queue,
		replyTimeout: replyTimeout,
		source:       "client",
	}
}

// WithSource returns a copy of the client that labels its commands with
// source (for example "api", "mqtt", "trigger:low_humidity").
func (c *Client) WithSource(source string) *Client {
	cp := *c
	cp.source = source
	return &cp
}

// SetMetrics sets the metrics sink for send failures.
func (c *Client) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// Source returns the label attached to commands from this client.
func (c *Client) Source() string {
	return c.source
}

// GetDeviceConfigs returns a snapshot of every device in configuration order.
//
// Returns ErrChannelFull, ErrOwnerStopped, ErrReplyTimeout or the context
// error when no snapshot could be obtained.
func (c *Client) GetDeviceConfigs(ctx context.Context) ([]device.Record, error) {
	reply, err := c.request(ctx, GetAllDeviceConfigs{})
	if err != nil {
		return nil, err
	}
	return reply.Devices, nil
}

// Toggle flips a device and returns its updated record.
//
// Returns ErrUnknownDevice for an id that is not configured, in addition to
// the errors of GetDeviceConfigs.
func (c *Client) Toggle(ctx context.Context, id string) (device.Record, error) {
	reply, err := c.request(ctx, ToggleDevice{DeviceID: id})
	if err != nil {
		return reply.Device, err
	}
	return reply.Device, nil
}

// SetState enables or disables a device and waits for the result.
func (c *Client) SetState(ctx context.Context, id string, state device.State) (device.Record, error) {
	reply, err := c.request(ctx, SetDevice(id, state))
	if err != nil {
		return reply.Device, err
	}
	return reply.Device, nil
}

// Enable queues an EnableDevice without waiting for the result.
func (c *Client) Enable(ctx context.Context, id string) error {
	return c.send(ctx, NewEnvelope(EnableDevice{DeviceID: id}, c.source, nil))
}

// Disable queues a DisableDevice without waiting for the result.
func (c *Client) Disable(ctx context.Context, id string) error {
	return c.send(ctx, NewEnvelope(DisableDevice{DeviceID: id}, c.source, nil))
}

func (c *Client) request(ctx context.Context, cmd Command) (Reply, error) {
	replyCh := make(chan Reply, 1)
	if err := c.send(ctx, NewEnvelope(cmd, c.source, replyCh)); err != nil {
		return Reply{}, err
	}

	timer := time.NewTimer(c.replyTimeout)
	defer timer.Stop()

	select {
	case reply := <-replyCh:
		return reply, reply.Err
	case <-timer.C:
		return Reply{}, fmt.Errorf("%w: %s after %s", ErrReplyTimeout, cmd.Name(), c.replyTimeout)
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

func (c *Client) send(ctx context.Context, env Envelope) error {
	err := c.queue.Send(ctx, env)
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrChannelFull):
		c.metrics.SendFailed("channel_full")
	case errors.Is(err, ErrOwnerStopped):
		c.metrics.SendFailed("owner_stopped")
	default:
		c.metrics.SendFailed("cancelled")
	}
	return fmt.Errorf("sending %s for %s: %w", commandName(env.Command), env.Source, err)
}
