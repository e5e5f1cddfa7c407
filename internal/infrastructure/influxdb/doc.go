// Package influxdb provides optional InfluxDB connectivity for SporeHut.
//
// It wraps the official influxdb-client-go v2 library and records three
// measurements:
//   - device_state: every relay change, tagged by device and source
//   - environment: CO2, temperature and humidity per sensor reading
//   - trigger_fired: automation firings
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteEnvironment("scd41", 812, 21.4, 91.2, time.Now())
//
// A nil *Client is valid and drops every write, so callers do not need
// to branch on whether InfluxDB is enabled.
//
// # Error Handling
//
// Writes are non-blocking. Batch failures are reported through the
// callback set with SetOnError.
package influxdb
