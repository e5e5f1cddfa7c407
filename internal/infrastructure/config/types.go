package config

import "time"

// Config is the root configuration structure for SporeHut Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Devices    []DeviceConfig   `yaml:"devices"`
	Hardware   HardwareConfig   `yaml:"hardware"`
	Controller ControllerConfig `yaml:"controller"`
	Automation AutomationConfig `yaml:"automation"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DeviceConfig describes one relay-driven device.
// The pin is fixed for the lifetime of the process.
type DeviceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Pin  int    `yaml:"pin"`
}

// HardwareConfig selects real or simulated hardware.
type HardwareConfig struct {
	// Simulated replaces the GPIO relays and the SCD41 with in-memory fakes.
	Simulated bool         `yaml:"simulated"`
	GPIO      GPIOConfig   `yaml:"gpio"`
	Sensor    SensorConfig `yaml:"sensor"`
}

// GPIOConfig contains relay board settings.
type GPIOConfig struct {
	// ActiveLow drives the pin LOW to energise the relay.
	ActiveLow bool `yaml:"active_low"`
}

// SensorConfig contains environment sensor settings.
type SensorConfig struct {
	Type           string `yaml:"type"` // scd41, simulated
	Name           string `yaml:"name"`
	I2CBus         string `yaml:"i2c_bus"`
	Address        uint16 `yaml:"address"`
	PollIntervalMS int    `yaml:"poll_interval_ms"`
	StartupRetries int    `yaml:"startup_retries"`
}

// ControllerConfig contains device owner and command channel settings.
type ControllerConfig struct {
	QueueCapacity  int `yaml:"queue_capacity"`
	SendTimeoutMS  int `yaml:"send_timeout_ms"`
	ReplyTimeoutMS int `yaml:"reply_timeout_ms"`
	// ObserverBuffer is the per-observer event buffer; events are dropped when full.
	ObserverBuffer int `yaml:"observer_buffer"`
}

// AutomationConfig contains trigger engine settings.
type AutomationConfig struct {
	Enabled       bool           `yaml:"enabled"`
	PeriodSeconds int            `yaml:"period_seconds"`
	Humidity      HumidityConfig `yaml:"humidity"`
}

// HumidityConfig contains the stock humidity trigger settings.
type HumidityConfig struct {
	LowThreshold  float64 `yaml:"low_threshold"`
	HighThreshold float64 `yaml:"high_threshold"`
	FoggerID      string  `yaml:"fogger_id"`
	FanID         string  `yaml:"fan_id"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path               string `yaml:"path"`
	WALMode            bool   `yaml:"wal_mode"`
	BusyTimeout        int    `yaml:"busy_timeout"`
	AuditRetentionDays int    `yaml:"audit_retention_days"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
func milliseconds(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// ReadTimeout is the HTTP read and header timeout.
func (a APIConfig) ReadTimeout() time.Duration { return seconds(a.Timeouts.Read) }

// WriteTimeout is the HTTP write timeout.
func (a APIConfig) WriteTimeout() time.Duration { return seconds(a.Timeouts.Write) }

// IdleTimeout is the HTTP keep-alive idle timeout.
func (a APIConfig) IdleTimeout() time.Duration { return seconds(a.Timeouts.Idle) }

// SendTimeout returns how long a producer waits for queue space.
func (c *Config) SendTimeout() time.Duration { return milliseconds(c.Controller.SendTimeoutMS) }

// ReplyTimeout returns how long the client facade waits for the owner's reply.
func (c *Config) ReplyTimeout() time.Duration { return milliseconds(c.Controller.ReplyTimeoutMS) }

// TriggerPeriod returns the trigger evaluation period.
func (c *Config) TriggerPeriod() time.Duration { return seconds(c.Automation.PeriodSeconds) }

// SensorPollInterval returns the sensor data-ready polling interval.
func (c *Config) SensorPollInterval() time.Duration {
	return milliseconds(c.Hardware.Sensor.PollIntervalMS)
}
