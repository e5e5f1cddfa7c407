package config

import "strconv"

// envOverride maps one SPOREHUT_* variable onto a config field. Values
// that fail to parse leave the field untouched.
type envOverride struct {
	name  string
	apply func(c *Config, v string)
}

func setString(dst *string, v string) { *dst = v }

func setBool(dst *bool, v string) {
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}

func setInt(dst *int, v string) {
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func setFloat(dst *float64, v string) {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = f
	}
}

// envOverrides lists every supported variable. Secrets belong here rather
// than in the file.
var envOverrides = []envOverride{
	{"SPOREHUT_HARDWARE_SIMULATED", func(c *Config, v string) { setBool(&c.Hardware.Simulated, v) }},
	{"SPOREHUT_DATABASE_PATH", func(c *Config, v string) { setString(&c.Database.Path, v) }},
	{"SPOREHUT_MQTT_HOST", func(c *Config, v string) { setString(&c.MQTT.Broker.Host, v) }},
	{"SPOREHUT_MQTT_USERNAME", func(c *Config, v string) { setString(&c.MQTT.Auth.Username, v) }},
	{"SPOREHUT_MQTT_PASSWORD", func(c *Config, v string) { setString(&c.MQTT.Auth.Password, v) }},
	{"SPOREHUT_API_HOST", func(c *Config, v string) { setString(&c.API.Host, v) }},
	{"SPOREHUT_API_PORT", func(c *Config, v string) { setInt(&c.API.Port, v) }},
	{"SPOREHUT_INFLUXDB_TOKEN", func(c *Config, v string) { setString(&c.InfluxDB.Token, v) }},
	{"SPOREHUT_HUMIDITY_LOW", func(c *Config, v string) { setFloat(&c.Automation.Humidity.LowThreshold, v) }},
	{"SPOREHUT_HUMIDITY_HIGH", func(c *Config, v string) { setFloat(&c.Automation.Humidity.HighThreshold, v) }},
}
