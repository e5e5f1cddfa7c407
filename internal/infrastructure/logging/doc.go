// Package logging is SporeHut Core's structured logger, a thin layer over
// log/slog.
//
// Every entry carries service and version fields. Output is JSON unless
// the config asks for text:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Subsystems take a child logger:
//
//	log := logging.New(cfg.Logging, version)
//	log.Component("automation").Warn("condition failed", "error", err)
//
// Never log the MQTT password or the InfluxDB token.
package logging
