package automation

import (
	"context"
	"fmt"

	"github.com/sporehut/sporehut-core/internal/hal"
)

// Stock trigger ids.
const (
	LowHumidityID  = "low_humidity"
	HighHumidityID = "high_humidity"
)

// Dispatcher sends fire-and-forget device commands. controller.Client
// satisfies it.
type Dispatcher interface {
	Enable(ctx context.Context, id string) error
	Disable(ctx context.Context, id string) error
}

// HumidityConfig configures the stock humidity triggers.
type HumidityConfig struct {
	Low      float64
	High     float64
	FoggerID string
	FanID    string
}

// DefaultHumidityConfig returns the thresholds SporeHut shipped with.
func DefaultHumidityConfig() HumidityConfig {
	return HumidityConfig{
		Low:      90,
		High:     98,
		FoggerID: "FOGGER",
		FanID:    "FOGGER_FAN",
	}
}

// Validate rejects thresholds that would let both triggers fire on the
// same reading.
func (c HumidityConfig) Validate() error {
	if c.High <= c.Low {
		return fmt.Errorf("%w: low=%.1f high=%.1f", ErrInvalidThresholds, c.Low, c.High)
	}
	return nil
}

// LowHumidity fires when relative humidity drops below threshold and
// enables each device in ids, in order.
func LowHumidity(sensor hal.Sensor, threshold float64, d Dispatcher, ids ...string) Trigger {
	actions := make([]Action, 0, len(ids))
	for _, id := range ids {
		id := id
		actions = append(actions, func(ctx context.Context) error {
			return d.Enable(ctx, id)
		})
	}
	return Trigger{
		ID: LowHumidityID,
		Condition: func(ctx context.Context) (bool, error) {
			r, err := sensor.Read(ctx)
			if err != nil {
				return false, fmt.Errorf("reading humidity: %w", err)
			}
			return r.Humidity < threshold, nil
		},
		Actions: actions,
	}
}

// HighHumidity fires when relative humidity rises above threshold and
// disables each device in ids, in order.
func HighHumidity(sensor hal.Sensor, threshold float64, d Dispatcher, ids ...string) Trigger {
	actions := make([]Action, 0, len(ids))
	for _, id := range ids {
		id := id
		actions = append(actions, func(ctx context.Context) error {
			return d.Disable(ctx, id)
		})
	}
	return Trigger{
		ID: HighHumidityID,
		Condition: func(ctx context.Context) (bool, error) {
			r, err := sensor.Read(ctx)
			if err != nil {
				return false, fmt.Errorf("reading humidity: %w", err)
			}
			return r.Humidity > threshold, nil
		},
		Actions: actions,
	}
}

// HumidityTriggers builds the low and high humidity triggers for the
// fogger and its fan.
//
// dispatcherFor returns the dispatcher for a trigger id, which lets the
// caller label commands with the trigger that sent them.
func HumidityTriggers(cfg HumidityConfig, sensor hal.Sensor, dispatcherFor func(triggerID string) Dispatcher) ([]Trigger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return []Trigger{
		LowHumidity(sensor, cfg.Low, dispatcherFor(LowHumidityID), cfg.FoggerID, cfg.FanID),
		HighHumidity(sensor, cfg.High, dispatcherFor(HighHumidityID), cfg.FoggerID, cfg.FanID),
	}, nil
}
