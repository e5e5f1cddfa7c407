package config

import (
	"fmt"
	"strings"
)

// problems collects validation failures so one pass reports all of them.
type problems []string

func (p *problems) addf(format string, args ...any) { *p = append(*p, fmt.Sprintf(format, args...)) }

func (p *problems) check(ok bool, msg string) {
	if !ok {
		*p = append(*p, msg)
	}
}

// Validate checks the configuration, including cross-field rules: device
// ids and pins are unique, the humidity band is ordered, and the trigger
// devices exist when automation is enabled.
//
// Returns:
//   - error: Every validation failure joined into one message, or nil
func (c *Config) Validate() error {
	var p problems

	p.check(c.Site.ID != "", "site.id is required")

	ids := c.validateDevices(&p)

	switch c.Hardware.Sensor.Type {
	case "scd41", "simulated":
	default:
		p.check(false, "hardware.sensor.type must be scd41 or simulated")
	}

	p.check(c.Controller.QueueCapacity >= 1, "controller.queue_capacity must be at least 1")
	p.check(c.Controller.SendTimeoutMS >= 1, "controller.send_timeout_ms must be positive")
	p.check(c.Controller.ReplyTimeoutMS >= 1, "controller.reply_timeout_ms must be positive")

	c.validateAutomation(&p, ids)

	p.check(c.Database.Path != "", "database.path is required")
	p.check(c.MQTT.QoS >= 0 && c.MQTT.QoS <= 2, "mqtt.qos must be 0, 1, or 2")
	p.check(c.API.Port >= 1 && c.API.Port <= 65535, "api.port must be between 1 and 65535")

	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("configuration errors: %s", strings.Join(p, "; "))
}

// validateDevices returns the set of configured ids for later
// cross-references.
func (c *Config) validateDevices(p *problems) map[string]bool {
	p.check(len(c.Devices) > 0, "devices must contain at least one device")

	ids := make(map[string]bool, len(c.Devices))
	pinOwner := make(map[int]string, len(c.Devices))
	for i, d := range c.Devices {
		if d.ID == "" {
			p.addf("devices[%d].id is required", i)
			continue
		}
		if ids[d.ID] {
			p.addf("devices[%d].id %q is duplicated", i, d.ID)
		}
		ids[d.ID] = true

		if d.Pin < 0 {
			p.addf("devices[%d].pin must not be negative", i)
		}
		if owner, taken := pinOwner[d.Pin]; taken {
			p.addf("devices[%d].pin %d already used by %q", i, d.Pin, owner)
			continue
		}
		pinOwner[d.Pin] = d.ID
	}
	return ids
}

func (c *Config) validateAutomation(p *problems, ids map[string]bool) {
	a := c.Automation
	p.check(a.PeriodSeconds >= 1, "automation.period_seconds must be at least 1")
	p.check(a.Humidity.HighThreshold > a.Humidity.LowThreshold,
		"automation.humidity.high_threshold must be greater than low_threshold")
	p.check(a.Humidity.LowThreshold >= 0 && a.Humidity.HighThreshold <= 100,
		"automation.humidity thresholds must be within 0-100")

	if !a.Enabled {
		return
	}
	if !ids[a.Humidity.FoggerID] {
		p.addf("automation.humidity.fogger_id %q is not a configured device", a.Humidity.FoggerID)
	}
	if !ids[a.Humidity.FanID] {
		p.addf("automation.humidity.fan_id %q is not a configured device", a.Humidity.FanID)
	}
}
