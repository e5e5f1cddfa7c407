package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load builds the configuration in three layers: Default, then the YAML
// file at path, then SPOREHUT_* environment variables. The result is
// validated before it is returned.
//
// A devices list in the file replaces the default pair outright; an
// omitted list keeps it.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read or parsed, or validation fails
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	cfg.Devices = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if len(cfg.Devices) == 0 {
		cfg.Devices = defaultDevices()
	}

	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.name); ok && v != "" {
			o.apply(cfg, v)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration of a stock SporeHut: the fogger on
// GPIO17 and its fan on GPIO27 behind an active-low relay board, an SCD41
// on I2C bus 1 and the 90/98 %RH humidity band checked every 5 seconds.
func Default() *Config {
	cfg := &Config{
		Site:    SiteConfig{ID: "sporehut-001", Name: "SporeHut System"},
		Devices: defaultDevices(),
	}

	cfg.Hardware.GPIO.ActiveLow = true
	cfg.Hardware.Sensor = SensorConfig{
		Type:           "scd41",
		Name:           "scd41",
		I2CBus:         "1",
		Address:        0x62,
		PollIntervalMS: 100,
		StartupRetries: 5,
	}

	cfg.Controller = ControllerConfig{
		QueueCapacity:  32,
		SendTimeoutMS:  100,
		ReplyTimeoutMS: 2000,
		ObserverBuffer: 64,
	}

	cfg.Automation = AutomationConfig{
		Enabled:       true,
		PeriodSeconds: 5,
		Humidity: HumidityConfig{
			LowThreshold:  90,
			HighThreshold: 98,
			FoggerID:      "FOGGER",
			FanID:         "FOGGER_FAN",
		},
	}

	cfg.Database = DatabaseConfig{
		Path:               "./data/sporehut.db",
		WALMode:            true,
		BusyTimeout:        5,
		AuditRetentionDays: 30,
	}

	cfg.MQTT.Broker = MQTTBrokerConfig{Host: "localhost", Port: 1883, ClientID: "sporehut-core"}
	cfg.MQTT.QoS = 1
	cfg.MQTT.Reconnect = MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 60}

	cfg.API.Host = "0.0.0.0"
	cfg.API.Port = 8080
	cfg.API.Timeouts = APITimeoutConfig{Read: 30, Write: 30, Idle: 60}

	cfg.WebSocket = WebSocketConfig{Path: "/ws", MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}
	cfg.InfluxDB.BatchSize = 100
	cfg.InfluxDB.FlushInterval = 10
	cfg.Logging = LoggingConfig{Level: "info", Format: "json", Output: "stdout"}

	return cfg
}

func defaultDevices() []DeviceConfig {
	return []DeviceConfig{
		{ID: "FOGGER_FAN", Name: "Fogger Fan", Pin: 27},
		{ID: "FOGGER", Name: "Fogger", Pin: 17},
	}
}
