// Package config loads the SporeHut Core YAML configuration.
//
// Values come from Default, then the file, then SPOREHUT_* environment
// variables (see envOverrides). The MQTT password and the InfluxDB token
// are expected to arrive through the environment; keep the file itself at
// 0600 if it carries them.
//
// Validate runs after loading. It rejects duplicate device ids or relay
// pins and a humidity band whose high threshold is not above the low one.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
package config
